package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"
)

// fileSource reloads a JSON file whenever its modification time changes
type fileSource struct {
	path  string
	mtime time.Time
}

// changed reads the file if it differs from the last successful read. It returns nil
// data when nothing changed.
func (f *fileSource) changed() ([]byte, time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("checking %s: %w", f.path, err)
	}
	if info.ModTime().Equal(f.mtime) {
		return nil, time.Time{}, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, info.ModTime(), nil
}

type scheduleRecord struct {
	Entry
	Start string `json:"start,omitempty"` // HHMM UTC
	End   string `json:"end,omitempty"`   // HHMM UTC
}

// FileSchedule is a ScheduleProvider backed by a JSON object of name → entry.
// Entries may carry a start/end HHMM window in UTC; entries without one are always
// on the air.
type FileSchedule struct {
	file fileSource
	now  func() time.Time

	mu      sync.RWMutex
	records map[string]scheduleRecord
}

// NewFileSchedule creates a provider for path. The file is read on the first Refresh.
func NewFileSchedule(path string) *FileSchedule {
	return &FileSchedule{
		file:    fileSource{path: path},
		now:     time.Now,
		records: make(map[string]scheduleRecord),
	}
}

// Refresh reloads the file if it changed. On error the previous entries are kept.
func (s *FileSchedule) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, mtime, err := s.file.changed()
	if err != nil || data == nil {
		return err
	}

	var records map[string]scheduleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing %s: %w", s.file.path, err)
	}
	for key, r := range records {
		if r.Name == "" {
			r.Name = key
			records[key] = r
		}
	}

	s.mu.Lock()
	s.records = records
	s.file.mtime = mtime
	s.mu.Unlock()
	return nil
}

// CurrentEntries returns the entries whose window contains the current time
func (s *FileSchedule) CurrentEntries() map[string]Entry {
	now := s.now().UTC()
	minute := now.Hour()*60 + now.Minute()

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Entry, len(s.records))
	for key, r := range s.records {
		if onAir(r.Start, r.End, minute) {
			result[key] = r.Entry
		}
	}
	return result
}

// onAir reports whether minute of day falls into [start, end). Windows may wrap
// around midnight. A missing or malformed bound means the entry is always on.
func onAir(start, end string, minute int) bool {
	from, okFrom := parseHHMM(start)
	to, okTo := parseHHMM(end)
	if !okFrom || !okTo {
		return true
	}
	if from <= to {
		return minute >= from && minute < to
	}
	return minute >= from || minute < to
}

func parseHHMM(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	h, m := v/100, v%100
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}

// FileRepeaters is a RepeaterProvider backed by a JSON array of repeaters. Range is
// measured from a fixed receiver position.
type FileRepeaters struct {
	file     fileSource
	lat, lon float64

	mu        sync.RWMutex
	repeaters []Repeater
}

// NewFileRepeaters creates a provider for path centered on the receiver at lat, lon
func NewFileRepeaters(path string, lat, lon float64) *FileRepeaters {
	return &FileRepeaters{
		file: fileSource{path: path},
		lat:  lat,
		lon:  lon,
	}
}

// Refresh reloads the file if it changed. On error the previous repeaters are kept.
func (r *FileRepeaters) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, mtime, err := r.file.changed()
	if err != nil || data == nil {
		return err
	}

	var repeaters []Repeater
	if err := json.Unmarshal(data, &repeaters); err != nil {
		return fmt.Errorf("parsing %s: %w", r.file.path, err)
	}

	r.mu.Lock()
	r.repeaters = repeaters
	r.file.mtime = mtime
	r.mu.Unlock()
	return nil
}

// AllInRange returns the repeaters within radiusKm of the receiver
func (r *FileRepeaters) AllInRange(radiusKm float64) []Repeater {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Repeater
	for _, rep := range r.repeaters {
		if Distance(r.lat, r.lon, rep.Lat, rep.Lon) <= radiusKm {
			result = append(result, rep)
		}
	}
	return result
}

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two points
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
