package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/0xAF/owrx-markers/internal/marker"
)

func TestWriteScrape_Text(t *testing.T) {
	result := &ScrapeResult{
		ScrapedAt: time.Now(),
		CachePath: "/data/markers.json",
		Total:     12,
		Sources: []SourceResult{
			{Source: "kiwisdr", Count: 12, Duration: "1.2s"},
			{Source: "websdr", Failed: true, Duration: "30s"},
		},
	}

	var buf bytes.Buffer
	if err := WriteScrape(&buf, result, FormatText); err != nil {
		t.Fatalf("WriteScrape() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"kiwisdr", "12 receivers", "websdr", "FAILED", "Total: 12 receivers saved to /data/markers.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteShow_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteShow(&buf, &ShowResult{}, FormatText, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No markers found.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteShow_JSON(t *testing.T) {
	result := &ShowResult{
		Count: 1,
		Markers: map[string][]*marker.Marker{
			"static": {marker.New("club", "Club", 1, 2)},
		},
	}

	var buf bytes.Buffer
	if err := WriteShow(&buf, result, FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"type": "latlon"`) {
		t.Errorf("markers should be written in map form:\n%s", buf.String())
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteShow(&buf, &ShowResult{}, OutputFormat("xml"), false); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := WriteScrape(&buf, &ScrapeResult{}, OutputFormat("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}
