package scraper

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	ReceiverBookURL = "https://www.receiverbook.de/map"

	// Longitude step between receivers that share one site, roughly 50m
	ColocatedOffset = 0.0005
)

var (
	receiversPattern = regexp.MustCompile(`^\s*var\s+receivers\s+=\s+(\[.*\]);\s*$`)

	errNoReceivers = errors.New("receivers array not found")
)

// ReceiverBook scrapes the ReceiverBook map page
type ReceiverBook struct {
	client *Client
	url    string
}

// NewReceiverBook creates a ReceiverBook source. An empty endpoint selects ReceiverBookURL.
func NewReceiverBook(client *Client, endpoint string) *ReceiverBook {
	if endpoint == "" {
		endpoint = ReceiverBookURL
	}
	return &ReceiverBook{client: client, url: endpoint}
}

func (b *ReceiverBook) Name() string     { return "receiverbook" }
func (b *ReceiverBook) Endpoint() string { return b.url }

// Scrape fetches and parses the ReceiverBook map page
func (b *ReceiverBook) Scrape(ctx context.Context) (marker.Set, error) {
	body, err := b.client.Get(ctx, b.url)
	if err != nil {
		return nil, err
	}
	return parseReceiverBook(bytes.NewReader(body))
}

// parseReceiverBook finds the "var receivers = [...];" line and converts its sites
func parseReceiverBook(r io.Reader) (marker.Set, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxResponseSize)

	var payload string
	for scanner.Scan() {
		if m := receiversPattern.FindStringSubmatch(scanner.Text()); m != nil {
			payload = m[1]
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	if payload == "" {
		return nil, errNoReceivers
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("parsing JSON: invalid receivers array")
	}

	result := marker.NewSet()

	gjson.Parse(payload).ForEach(func(_, site gjson.Result) bool {
		coords := site.Get("location.coordinates").Array()
		if len(coords) < 2 || coords[0].Type != gjson.Number || coords[1].Type != gjson.Number {
			return true
		}
		lon := coords[0].Float()
		lat := coords[1].Float()

		site.Get("receivers").ForEach(func(_, r gjson.Result) bool {
			rawURL := r.Get("url").String()
			kind := r.Get("type").String()
			id := HostID(rawURL)
			if id == "" || kind == "" {
				return true
			}

			device := kind
			if v := r.Get("version"); v.Exists() {
				device = kind + " " + v.String()
			}

			rx := marker.New(id, kind, lat, lon)
			_ = rx.Set("url", rawURL)
			_ = rx.Set("device", device)
			if label := r.Get("label"); label.Exists() {
				_ = rx.Set("comment", label.String())
			}
			result.Add(rx)

			lon += ColocatedOffset
			return true
		})
		return true
	})

	return result, nil
}
