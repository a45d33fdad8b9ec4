package schedule

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-querystring/query"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	// StationsMode is the map mode of transmitter markers
	StationsMode = "Stations"
	// RepeatersMode is the map mode of repeater markers
	RepeatersMode = "Repeaters"

	// DefaultRadiusKm limits repeaters to those around the receiver
	DefaultRadiusKm = 200

	lookupURL          = "https://www.google.com/search"
	transmitterComment = "Transmitter"
)

// Entry is one currently transmitting station
type Entry struct {
	Name     string          `json:"name"`
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	TTL      int             `json:"ttl"` // seconds
	Schedule json.RawMessage `json:"schedule,omitempty"`
}

// ScheduleProvider is the broadcast schedule database
type ScheduleProvider interface {
	// Refresh reloads the database if it is due. It may be a no-op.
	Refresh(ctx context.Context) error
	// CurrentEntries returns the stations on the air now, keyed by name
	CurrentEntries() map[string]Entry
}

// Repeater is one repeater site
type Repeater struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Freq    float64 `json:"freq"`
	Mode    string  `json:"mode"`
	Status  string  `json:"status"`
	Updated string  `json:"updated"`
	Comment string  `json:"comment"`
}

// RepeaterProvider is the repeater database
type RepeaterProvider interface {
	Refresh(ctx context.Context) error
	AllInRange(radiusKm float64) []Repeater
}

type lookupQuery struct {
	Q string `url:"q"`
}

// LookupURL returns a web search URL for a station name
func LookupURL(name string) string {
	v, err := query.Values(lookupQuery{Q: name})
	if err != nil {
		return lookupURL
	}
	return lookupURL + "?" + v.Encode()
}

// LoadTransmitters builds one marker per station currently on the air. A failed
// refresh is logged and whatever the provider still holds is used.
func LoadTransmitters(ctx context.Context, provider ScheduleProvider) marker.Set {
	if err := provider.Refresh(ctx); err != nil {
		logger.Error("Refreshing transmitter schedule failed", logger.Fields{
			"source": "schedule",
		}, err)
	}

	result := marker.NewSet()
	for key, entry := range provider.CurrentEntries() {
		m, err := transmitterMarker(entry)
		if err != nil {
			logger.Warn("Skipping transmitter", logger.Fields{
				"source": "schedule",
				"key":    key,
				"error":  err.Error(),
			})
			continue
		}
		result.Add(m)
	}

	logger.Info("Loaded transmitters", logger.Fields{
		"source": "schedule",
		"count":  len(result),
	})
	return result
}

func transmitterMarker(e Entry) (*marker.Marker, error) {
	m := marker.New(e.Name, StationsMode, e.Lat, e.Lon)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	attrs := []struct {
		key   string
		value interface{}
	}{
		{"comment", transmitterComment},
		{"ttl", e.TTL * 1000},
		{"url", LookupURL(e.Name)},
	}
	for _, a := range attrs {
		if err := m.Set(a.key, a.value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", a.key, err)
		}
	}

	if len(e.Schedule) > 0 {
		m.Attrs["schedule"] = e.Schedule
	}
	return m, nil
}

// LoadRepeaters builds one marker per repeater within radiusKm of the receiver
func LoadRepeaters(ctx context.Context, provider RepeaterProvider, radiusKm float64) marker.Set {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	if err := provider.Refresh(ctx); err != nil {
		logger.Error("Refreshing repeater database failed", logger.Fields{
			"source": "repeaters",
		}, err)
	}

	result := marker.NewSet()
	for _, r := range provider.AllInRange(radiusKm) {
		m, err := repeaterMarker(r)
		if err != nil {
			logger.Warn("Skipping repeater", logger.Fields{
				"source": "repeaters",
				"name":   r.Name,
				"error":  err.Error(),
			})
			continue
		}
		result.Add(m)
	}

	logger.Info("Loaded repeaters", logger.Fields{
		"source":    "repeaters",
		"radius_km": radiusKm,
		"count":     len(result),
	})
	return result
}

func repeaterMarker(r Repeater) (*marker.Marker, error) {
	m := marker.New(r.Name, RepeatersMode, r.Lat, r.Lon)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	attrs := []struct {
		key   string
		value interface{}
	}{
		{"freq", r.Freq},
		{"mmode", r.Mode},
		{"status", r.Status},
		{"updated", r.Updated},
		{"comment", r.Comment},
	}
	for _, a := range attrs {
		if err := m.Set(a.key, a.value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", a.key, err)
		}
	}
	return m, nil
}
