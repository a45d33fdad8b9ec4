package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

// Default locations of static marker files
const (
	DefaultMarkersFile = "markers.json"
	SystemMarkersFile  = "/etc/openwebrx/markers.json"
	SystemMarkersDir   = "/etc/openwebrx/markers.d"
)

// ErrDirUnreadable is reported when the marker directory exists but cannot be listed
var ErrDirUnreadable = errors.New("marker directory unreadable")

// PathResolver lists the static marker files to load, in load order. Problems that did
// not prevent resolving the rest are returned as warnings.
type PathResolver interface {
	Resolve() ([]string, []error)
}

// Paths is a fixed list of files
type Paths []string

// Resolve returns the list unchanged
func (p Paths) Resolve() ([]string, []error) {
	return []string(p), nil
}

// DefaultPaths resolves a default file, a system file and every *.json file in a
// directory. A missing directory is not a warning.
type DefaultPaths struct {
	File       string
	SystemFile string
	Dir        string
}

// NewDefaultPaths returns the standard OpenWebRX locations
func NewDefaultPaths() DefaultPaths {
	return DefaultPaths{
		File:       DefaultMarkersFile,
		SystemFile: SystemMarkersFile,
		Dir:        SystemMarkersDir,
	}
}

// Resolve lists the configured files followed by the directory contents in name order
func (p DefaultPaths) Resolve() ([]string, []error) {
	var paths []string
	var warnings []error

	for _, f := range []string{p.File, p.SystemFile} {
		if f != "" {
			paths = append(paths, f)
		}
	}

	if p.Dir == "" {
		return paths, nil
	}

	entries, err := os.ReadDir(p.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return paths, nil
	case err != nil:
		return paths, append(warnings, fmt.Errorf("%w: %s: %v", ErrDirUnreadable, p.Dir, err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		paths = append(paths, filepath.Join(p.Dir, name))
	}

	return paths, warnings
}

// LoadFile reads one static marker file. Comments and trailing commas are allowed.
func LoadFile(path string) (marker.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading markers: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing markers: %w", err)
	}

	return decodeMarkers(std, path)
}

// LoadFiles loads every resolved file that exists. Later files overwrite earlier ones
// on ID collision. Missing files are skipped silently; unreadable or malformed files
// are logged and skipped.
func LoadFiles(resolver PathResolver) marker.Set {
	result := marker.NewSet()

	paths, warnings := resolver.Resolve()
	for _, w := range warnings {
		logger.Warn("Problem locating marker files", logger.Fields{
			"error": w.Error(),
		})
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		logger.Info("Loading markers", logger.Fields{"path": path})

		set, err := LoadFile(path)
		if err != nil {
			logger.Error("Loading markers failed", logger.Fields{"path": path}, err)
			continue
		}

		logger.Info("Loaded markers", logger.Fields{
			"path":  path,
			"count": len(set),
		})
		result.Merge(set)
	}

	return result
}
