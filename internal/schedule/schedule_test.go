package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type stubSchedule struct {
	entries    map[string]Entry
	refreshErr error
	refreshed  int
}

func (s *stubSchedule) Refresh(ctx context.Context) error {
	s.refreshed++
	return s.refreshErr
}

func (s *stubSchedule) CurrentEntries() map[string]Entry {
	return s.entries
}

type stubRepeaters struct {
	repeaters []Repeater
	radius    float64
}

func (s *stubRepeaters) Refresh(ctx context.Context) error { return nil }

func (s *stubRepeaters) AllInRange(radiusKm float64) []Repeater {
	s.radius = radiusKm
	return s.repeaters
}

func TestLookupURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"BBC", "https://www.google.com/search?q=BBC"},
		{"Radio Romania Int", "https://www.google.com/search?q=Radio+Romania+Int"},
		{"R&B/FM", "https://www.google.com/search?q=R%26B%2FFM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LookupURL(tt.name); got != tt.want {
				t.Errorf("LookupURL(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoadTransmitters(t *testing.T) {
	provider := &stubSchedule{
		entries: map[string]Entry{
			"Radio Bulgaria": {
				Name:     "Radio Bulgaria",
				Lat:      42.1,
				Lon:      24.7,
				TTL:      3600,
				Schedule: json.RawMessage(`[{"freq":9400,"lang":"E"}]`),
			},
			"nameless": {Lat: 1, Lon: 2},
		},
	}

	set := LoadTransmitters(context.Background(), provider)

	if provider.refreshed != 1 {
		t.Errorf("Refresh() called %d times, want 1", provider.refreshed)
	}
	if len(set) != 1 {
		t.Fatalf("LoadTransmitters() returned %v, want only Radio Bulgaria", set.IDs())
	}

	m := set["Radio Bulgaria"]
	if m.Mode != StationsMode {
		t.Errorf("Mode = %q, want %q", m.Mode, StationsMode)
	}
	if got := m.String("comment"); got != "Transmitter" {
		t.Errorf("comment = %q, want Transmitter", got)
	}
	if got := m.String("url"); got != "https://www.google.com/search?q=Radio+Bulgaria" {
		t.Errorf("url = %q", got)
	}
	if raw, _ := m.Attr("ttl"); string(raw) != "3600000" {
		t.Errorf("ttl = %s, want 3600000", raw)
	}
	if raw, _ := m.Attr("schedule"); string(raw) != `[{"freq":9400,"lang":"E"}]` {
		t.Errorf("schedule = %s, want payload passed through verbatim", raw)
	}
}

func TestLoadTransmitters_RefreshFailureUsesCurrentEntries(t *testing.T) {
	provider := &stubSchedule{
		refreshErr: errors.New("download failed"),
		entries: map[string]Entry{
			"DW": {Name: "DW", Lat: 50, Lon: 7},
		},
	}

	if set := LoadTransmitters(context.Background(), provider); len(set) != 1 {
		t.Errorf("LoadTransmitters() returned %d markers, want 1", len(set))
	}
}

func TestLoadRepeaters(t *testing.T) {
	provider := &stubRepeaters{
		repeaters: []Repeater{
			{Name: "LZ0BOT", Lat: 42.6, Lon: 23.3, Freq: 145.6, Mode: "FM", Status: "active", Updated: "2024-01-01", Comment: "Vitosha"},
			{Lat: 1, Lon: 1},
		},
	}

	set := LoadRepeaters(context.Background(), provider, 0)

	if provider.radius != DefaultRadiusKm {
		t.Errorf("radius = %v, want default %v", provider.radius, DefaultRadiusKm)
	}
	if len(set) != 1 {
		t.Fatalf("LoadRepeaters() returned %v, want only LZ0BOT", set.IDs())
	}

	m := set["LZ0BOT"]
	if m.Mode != RepeatersMode {
		t.Errorf("Mode = %q, want %q", m.Mode, RepeatersMode)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"freq", "145.6"},
		{"mmode", `"FM"`},
		{"status", `"active"`},
		{"updated", `"2024-01-01"`},
		{"comment", `"Vitosha"`},
	}
	for _, tt := range tests {
		if raw, _ := m.Attr(tt.key); string(raw) != tt.want {
			t.Errorf("%s = %s, want %s", tt.key, raw, tt.want)
		}
	}
}
