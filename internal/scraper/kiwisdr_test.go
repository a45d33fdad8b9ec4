package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const kiwiPage = `<html><body>
<div class='cl-entry'>
<!-- name=Test KiwiSDR, Somewhere -->
<!-- sdr_hw=KiwiSDR v1.2 -->
<!-- users=2 -->
<!-- users_max=4 -->
<!-- gps=(12.34, -56.78) -->
<!-- asl=120 -->
<!-- loc=Somewhere, Earth -->
<!-- sw_version=KiwiSDR_v1.550 -->
<!-- antenna=Mini-Whip -->
<a href='http://kiwi.example.org:8073/' target='_blank'>Test KiwiSDR</a>
</div>
<div class='cl-entry'>
<!-- name=No position -->
<!-- users=1 -->
<a href='http://nogps.example.org:8073/'>No position</a>
</div>
<div class='cl-entry'>
<!-- name=Bad counter -->
<!-- gps=(1.5, 2.5) -->
<!-- users=many -->
<a href='http://badcount.example.org:8073/'>Bad counter</a>
</div>
<div class='cl-entry'>
<!-- name=Second -->
<!-- gps=(-33.9000, 151.2000) -->
<a href="http://second.example.net/">Second</a>
</div>
</body></html>`

func TestKiwiSDR_ParseReceivers(t *testing.T) {
	k := NewKiwiSDR(NewClient(0), "")
	set, err := k.parseReceivers(strings.NewReader(kiwiPage))
	if err != nil {
		t.Fatalf("parseReceivers() error: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("parseReceivers() returned %d receivers, want 2: %v", len(set), set.IDs())
	}

	rx, ok := set["kiwi.example.org"]
	if !ok {
		t.Fatalf("receiver kiwi.example.org missing, got %v", set.IDs())
	}
	if rx.Mode != KiwiSDRMode {
		t.Errorf("Mode = %q, want %q", rx.Mode, KiwiSDRMode)
	}
	if rx.Lat != 12.34 || rx.Lon != -56.78 {
		t.Errorf("coordinates = (%v, %v), want (12.34, -56.78)", rx.Lat, rx.Lon)
	}
	if got := rx.String("comment"); got != "Test KiwiSDR, Somewhere" {
		t.Errorf("comment = %q", got)
	}
	if got := rx.String("device"); got != "KiwiSDR 1.550" {
		t.Errorf("device = %q, want %q", got, "KiwiSDR 1.550")
	}
	if got := rx.String("antenna"); got != "Mini-Whip" {
		t.Errorf("antenna = %q", got)
	}
	if raw, _ := rx.Attr("maxusers"); string(raw) != "4" {
		t.Errorf("maxusers = %s, want 4", raw)
	}
	if raw, _ := rx.Attr("altitude"); string(raw) != "120" {
		t.Errorf("altitude = %s, want 120", raw)
	}

	if _, ok := set["nogps.example.org"]; ok {
		t.Error("receiver without gps should be skipped")
	}
	if _, ok := set["badcount.example.org"]; ok {
		t.Error("receiver with non-integer users should be skipped")
	}
	if _, ok := set["second.example.net"]; !ok {
		t.Error("record after a skipped one should still be parsed")
	}
}

func TestKiwiSDR_TwoLineRecords(t *testing.T) {
	page := "<!-- gps=(12.34, -56.78) -->\n" +
		"<a href='http://example.org/path'>one</a>\n" +
		"<!-- name=missing gps -->\n" +
		"<a href='http://other.example.org/path'>two</a>\n"

	k := NewKiwiSDR(NewClient(0), "")
	set, err := k.parseReceivers(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parseReceivers() error: %v", err)
	}

	if len(set) != 1 {
		t.Fatalf("parseReceivers() returned %d receivers, want 1: %v", len(set), set.IDs())
	}
	rx, ok := set["example.org"]
	if !ok {
		t.Fatalf("expected receiver example.org, got %v", set.IDs())
	}
	if rx.Lat != 12.34 || rx.Lon != -56.78 {
		t.Errorf("coordinates = (%v, %v), want (12.34, -56.78)", rx.Lat, rx.Lon)
	}
}

func TestKiwiSDR_PendingRecordResetsAtAnchor(t *testing.T) {
	// The gps of the first record must not leak into the second one
	page := "<!-- gps=(1.0, 2.0) -->\n" +
		"<a href='http://first.example.org/'>first</a>\n" +
		"<a href='http://second.example.org/'>second</a>\n"

	k := NewKiwiSDR(NewClient(0), "")
	set, err := k.parseReceivers(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parseReceivers() error: %v", err)
	}
	if _, ok := set["second.example.org"]; ok {
		t.Error("second receiver inherited attributes from the first one")
	}
}

func TestKiwiSDR_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(kiwiPage))
	}))
	defer server.Close()

	k := NewKiwiSDR(NewClient(time.Second), server.URL)
	if k.Endpoint() != server.URL {
		t.Errorf("Endpoint() = %q, want %q", k.Endpoint(), server.URL)
	}

	set, err := k.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("Scrape() returned %d receivers, want 2", len(set))
	}
}

func TestNewKiwiSDR_DefaultEndpoint(t *testing.T) {
	if got := NewKiwiSDR(NewClient(0), "").Endpoint(); got != KiwiSDRURL {
		t.Errorf("Endpoint() = %q, want %q", got, KiwiSDRURL)
	}
}
