package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

// CacheFileName is the name of the receiver cache inside the data directory
const CacheFileName = "markers.json"

// Storage resolves files inside the data directory
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// DataDir returns the resolved data directory
func (s *Storage) DataDir() string {
	return s.dataDir
}

// CachePath returns the path to the receiver cache file
func (s *Storage) CachePath() string {
	return filepath.Join(s.dataDir, CacheFileName)
}

// decodeMarkers parses an id → marker object. Entries that fail to decode or validate
// are skipped; the rest of the document is still used.
func decodeMarkers(data []byte, path string) (marker.Set, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing markers: %w", err)
	}

	result := marker.NewSet()
	for key, entry := range raw {
		m := &marker.Marker{}
		if err := json.Unmarshal(entry, m); err != nil {
			logger.Warn("Skipping malformed marker", logger.Fields{
				"path":  path,
				"key":   key,
				"error": err.Error(),
			})
			continue
		}
		if m.ID == "" {
			m.ID = key
		}
		if err := m.Validate(); err != nil {
			logger.Warn("Skipping invalid marker", logger.Fields{
				"path":  path,
				"key":   key,
				"error": err.Error(),
			})
			continue
		}
		result[key] = m
	}

	return result, nil
}

// encodeMarkers writes a set in the same id → marker form decodeMarkers reads
func encodeMarkers(set marker.Set) ([]byte, error) {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding markers: %w", err)
	}
	return data, nil
}
