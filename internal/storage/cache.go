package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
	"github.com/0xAF/owrx-markers/internal/scraper"
)

const (
	// DefaultRefreshPeriod is how long a scrape stays fresh
	DefaultRefreshPeriod = 24 * time.Hour

	lockRetryDelay = 250 * time.Millisecond
)

// Cache is the receiver cache file. Its modification time is the staleness clock.
type Cache struct {
	path          string
	refreshPeriod time.Duration
	lock          *flock.Flock
}

// NewCache creates a cache backed by path. A non-positive refreshPeriod selects
// DefaultRefreshPeriod.
func NewCache(path string, refreshPeriod time.Duration) *Cache {
	if refreshPeriod <= 0 {
		refreshPeriod = DefaultRefreshPeriod
	}
	return &Cache{
		path:          path,
		refreshPeriod: refreshPeriod,
		lock:          flock.New(path + ".lock"),
	}
}

// Path returns the cache file path
func (c *Cache) Path() string {
	return c.path
}

// RefreshPeriod returns how long a scrape stays fresh
func (c *Cache) RefreshPeriod() time.Duration {
	return c.refreshPeriod
}

// ModTime returns the cache file's modification time, or false if there is no cache
func (c *Cache) ModTime() (time.Time, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// IsStale reports whether the directories should be scraped again. A missing cache
// is always stale.
func (c *Cache) IsStale(now time.Time) bool {
	mtime, ok := c.ModTime()
	if !ok {
		return true
	}
	return now.Sub(mtime) >= c.refreshPeriod
}

// Load reads the cache. It returns a nil set and an error when the file is missing or
// cannot be decoded, so callers can tell "no cache" apart from "empty cache".
func (c *Cache) Load() (marker.Set, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cache not found: %w", err)
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	set, err := decodeMarkers(data, c.path)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded cached receivers", logger.Fields{
		"path":  c.path,
		"count": len(set),
	})
	return set, nil
}

// Save atomically replaces the cache file with set
func (c *Cache) Save(set marker.Set) error {
	data, err := encodeMarkers(set)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".markers-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting cache permissions: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}

	logger.Info("Saved receivers cache", logger.Fields{
		"path":  c.path,
		"count": len(set),
	})
	return nil
}

// Rebuild scrapes all sources and saves the union if it is non-empty. An empty
// scrape leaves the existing cache file untouched. The scraped set is returned even
// when saving fails, so the map can still be updated for this cycle.
func (c *Cache) Rebuild(ctx context.Context, sources ...scraper.Source) (marker.Set, []scraper.Result) {
	locked, err := c.lock.TryLockContext(ctx, lockRetryDelay)
	if ctx.Err() != nil {
		return marker.NewSet(), nil
	}
	if err != nil {
		// An unwritable data directory must not stop the scrape itself
		logger.Error("Could not lock receivers cache, scraping anyway", logger.Fields{
			"path": c.lock.Path(),
		}, err)
	}
	if locked {
		defer func() {
			if err := c.lock.Unlock(); err != nil {
				logger.Error("Could not unlock receivers cache", logger.Fields{
					"path": c.lock.Path(),
				}, err)
			}
		}()
	}

	union, results := scraper.All(ctx, sources...)

	if len(union) == 0 {
		logger.Warn("Scrape returned no receivers, keeping existing cache", logger.Fields{
			"path": c.path,
		})
		return union, results
	}

	if err := c.Save(union); err != nil {
		logger.Error("Saving receivers cache failed", logger.Fields{
			"path":  c.path,
			"count": len(union),
		}, err)
	}

	return union, results
}
