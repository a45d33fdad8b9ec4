package marker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Location type written into every serialized marker. Older cache files may carry
// something else, it is overwritten on load.
const TypeLatLon = "latlon"

// Core keys that are lifted out of the attribute map
const (
	keyType = "type"
	keyID   = "id"
	keyMode = "mode"
	keyLat  = "lat"
	keyLon  = "lon"
)

// Category names one of the independently diffed marker namespaces
type Category string

const (
	CategoryStatic       Category = "static"
	CategoryReceivers    Category = "receivers"
	CategoryTransmitters Category = "transmitters"
	CategoryRepeaters    Category = "repeaters"
)

// Categories lists all categories in publish order
var Categories = []Category{
	CategoryStatic,
	CategoryReceivers,
	CategoryTransmitters,
	CategoryRepeaters,
}

var (
	ErrMissingID          = errors.New("marker has no id")
	ErrMissingMode        = errors.New("marker has no mode")
	ErrMissingCoordinates = errors.New("marker has no coordinates")
)

// Marker represents one point of interest on the map
type Marker struct {
	ID    string
	Mode  string
	Lat   float64
	Lon   float64
	Attrs map[string]json.RawMessage

	located bool
}

// New creates a located marker with no attributes
func New(id, mode string, lat, lon float64) *Marker {
	return &Marker{
		ID:      id,
		Mode:    mode,
		Lat:     lat,
		Lon:     lon,
		Attrs:   make(map[string]json.RawMessage),
		located: true,
	}
}

// Set stores an attribute. Values that cannot be encoded are dropped with an error.
func (m *Marker) Set(key string, value interface{}) error {
	switch key {
	case keyType, keyID, keyMode, keyLat, keyLon:
		return fmt.Errorf("attribute %q is reserved", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding attribute %q: %w", key, err)
	}
	if m.Attrs == nil {
		m.Attrs = make(map[string]json.RawMessage)
	}
	m.Attrs[key] = data
	return nil
}

// Attr returns the raw value of an attribute
func (m *Marker) Attr(key string) (json.RawMessage, bool) {
	v, ok := m.Attrs[key]
	return v, ok
}

// String returns a string attribute, or "" if it is absent or not a string
func (m *Marker) String(key string) string {
	raw, ok := m.Attrs[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Located reports whether the marker carries coordinates
func (m *Marker) Located() bool {
	return m.located
}

// Validate checks the fields a marker needs before it can be published
func (m *Marker) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.Mode == "" {
		return ErrMissingMode
	}
	if !m.located {
		return ErrMissingCoordinates
	}
	return nil
}

// Equal reports whether two markers serialize identically
func (m *Marker) Equal(other *Marker) bool {
	if m == nil || other == nil {
		return m == other
	}
	a, errA := json.Marshal(m)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone returns a deep copy
func (m *Marker) Clone() *Marker {
	c := *m
	c.Attrs = make(map[string]json.RawMessage, len(m.Attrs))
	for k, v := range m.Attrs {
		c.Attrs[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

// MarshalJSON writes the marker as one flat object, core keys and attributes side by side
func (m *Marker) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Attrs)+5)
	for k, v := range m.Attrs {
		out[k] = v
	}
	out[keyType] = TypeLatLon
	out[keyID] = m.ID
	out[keyMode] = m.Mode
	if m.located {
		out[keyLat] = m.Lat
		out[keyLon] = m.Lon
	}
	return json.Marshal(out)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// UnmarshalJSON reads a flat marker object. Unknown keys are kept verbatim in Attrs.
// A null lat or lon leaves the marker without coordinates.
func (m *Marker) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Marker{Attrs: make(map[string]json.RawMessage, len(raw))}

	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &m.ID); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
	}
	if v, ok := raw[keyMode]; ok {
		if err := json.Unmarshal(v, &m.Mode); err != nil {
			return fmt.Errorf("decoding mode: %w", err)
		}
	}

	lat, hasLat := raw[keyLat]
	lon, hasLon := raw[keyLon]
	if hasLat && hasLon && !isNull(lat) && !isNull(lon) {
		if err := json.Unmarshal(lat, &m.Lat); err != nil {
			return fmt.Errorf("decoding lat: %w", err)
		}
		if err := json.Unmarshal(lon, &m.Lon); err != nil {
			return fmt.Errorf("decoding lon: %w", err)
		}
		m.located = true
	}

	for k, v := range raw {
		switch k {
		case keyType, keyID, keyMode:
			continue
		case keyLat, keyLon:
			if m.located {
				continue
			}
		}
		m.Attrs[k] = v
	}

	return nil
}

// Expiry tells the map how long to keep a marker around
type Expiry struct {
	permanent bool
	until     time.Time
}

// PermanentLifetime is how far in the future a permanent marker's timestamp is placed
// for maps that only understand absolute expiry times.
const PermanentLifetime = 500 * 7 * 24 * time.Hour

// Permanent keeps a marker until it is explicitly removed
func Permanent() Expiry {
	return Expiry{permanent: true}
}

// Until keeps a marker until t
func Until(t time.Time) Expiry {
	return Expiry{until: t}
}

// IsPermanent reports whether the expiry never lapses
func (e Expiry) IsPermanent() bool {
	return e.permanent
}

// Deadline returns the absolute expiry time relative to now
func (e Expiry) Deadline(now time.Time) time.Time {
	if e.permanent {
		return now.Add(PermanentLifetime)
	}
	return e.until
}
