package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	WebSDRURL  = "http://websdr.ewi.utwente.nl/~~websdrlistk?v=1&fmt=2&chseq=0"
	WebSDRMode = "WebSDR"
)

var commentLinePattern = regexp.MustCompile(`(?m)^\s*//.*$`)

// WebSDR scrapes the WebSDR.org receiver list
type WebSDR struct {
	client *Client
	url    string
}

// NewWebSDR creates a WebSDR source. An empty endpoint selects WebSDRURL.
func NewWebSDR(client *Client, endpoint string) *WebSDR {
	if endpoint == "" {
		endpoint = WebSDRURL
	}
	return &WebSDR{client: client, url: endpoint}
}

func (w *WebSDR) Name() string     { return "websdr" }
func (w *WebSDR) Endpoint() string { return w.url }

// Scrape fetches and parses the WebSDR list
func (w *WebSDR) Scrape(ctx context.Context) (marker.Set, error) {
	var entries []map[string]json.RawMessage
	if err := w.client.GetJSON(ctx, w.url, commentStrippingDecoder{}, &entries); err != nil {
		return nil, err
	}
	return parseWebSDR(entries), nil
}

// commentStrippingDecoder removes "//" comment lines before decoding JSON
type commentStrippingDecoder struct{}

func (commentStrippingDecoder) Decode(resp *http.Response, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return decodeCommentedJSON(body, v)
}

func decodeCommentedJSON(body []byte, v interface{}) error {
	clean := commentLinePattern.ReplaceAll(body, nil)
	if err := json.NewDecoder(bytes.NewReader(clean)).Decode(v); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// parseWebSDR converts list entries into markers, skipping incomplete ones
func parseWebSDR(entries []map[string]json.RawMessage) marker.Set {
	result := marker.NewSet()

	for _, entry := range entries {
		lat, okLat := jsonFloat(entry["lat"])
		lon, okLon := jsonFloat(entry["lon"])
		rawURL, okURL := jsonString(entry["url"])
		if !okLat || !okLon || !okURL {
			continue
		}

		id := HostID(rawURL)
		if id == "" {
			continue
		}

		rx := marker.New(id, WebSDRMode, lat, lon)
		_ = rx.Set("url", rawURL)
		_ = rx.Set("device", "WebSDR")

		if desc, ok := jsonString(entry["desc"]); ok {
			_ = rx.Set("comment", desc)
		}

		if raw, ok := entry["users"]; ok {
			users, ok := jsonInt(raw)
			if !ok {
				continue
			}
			_ = rx.Set("users", users)
		}

		result.Add(rx)
	}

	return result
}

// jsonFloat accepts a JSON number or a numeric string
func jsonFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	if s, ok := jsonString(raw); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// jsonInt accepts a whole JSON number or an integer string
func jsonInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	if s, ok := jsonString(raw); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
