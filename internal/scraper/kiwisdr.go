package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	KiwiSDRURL  = "http://kiwisdr.com/public/"
	KiwiSDRMode = "KiwiSDR"
)

var (
	// Attribute comments look like <!-- gps=(52.1, 5.2) -->
	kiwiAttrPattern = regexp.MustCompile(`^\s*([^=\s]+)=(.*?)\s*$`)
	kiwiGPSPattern  = regexp.MustCompile(`^\(\s*(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)\s*\)`)
)

// KiwiSDR scrapes the public KiwiSDR receiver list
type KiwiSDR struct {
	client *Client
	url    string
}

// NewKiwiSDR creates a KiwiSDR source. An empty endpoint selects KiwiSDRURL.
func NewKiwiSDR(client *Client, endpoint string) *KiwiSDR {
	if endpoint == "" {
		endpoint = KiwiSDRURL
	}
	return &KiwiSDR{client: client, url: endpoint}
}

func (k *KiwiSDR) Name() string     { return "kiwisdr" }
func (k *KiwiSDR) Endpoint() string { return k.url }

// Scrape fetches and parses the KiwiSDR list
func (k *KiwiSDR) Scrape(ctx context.Context) (marker.Set, error) {
	body, err := k.client.Get(ctx, k.url)
	if err != nil {
		return nil, err
	}
	return k.parseReceivers(bytes.NewReader(body))
}

// parseReceivers walks the page in document order. Attribute comments accumulate into
// a pending record, and every anchor closes the record.
func (k *KiwiSDR) parseReceivers(r io.Reader) (marker.Set, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	result := marker.NewSet()
	pending := make(map[string]string)

	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			node := child.Get(0)

			switch node.Type {
			case html.CommentNode:
				if m := kiwiAttrPattern.FindStringSubmatch(node.Data); m != nil {
					pending[strings.ToLower(m[1])] = m[2]
				}
				return
			case html.ElementNode:
				if goquery.NodeName(child) == "a" {
					if href, ok := child.Attr("href"); ok {
						pending["url"] = href
						if m := kiwiReceiver(pending); m != nil {
							result.Add(m)
						}
						pending = make(map[string]string)
					}
				}
			}

			walk(child)
		})
	}
	walk(doc.Selection)

	return result, nil
}

// kiwiReceiver builds a marker from accumulated attributes, or nil if the record
// lacks a position or has malformed counters.
func kiwiReceiver(attrs map[string]string) *marker.Marker {
	gps, ok := attrs["gps"]
	if !ok {
		return nil
	}
	m := kiwiGPSPattern.FindStringSubmatch(gps)
	if m == nil {
		return nil
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lon, errLon := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLon != nil {
		return nil
	}

	id := HostID(attrs["url"])
	if id == "" {
		return nil
	}

	rx := marker.New(id, KiwiSDRMode, lat, lon)
	_ = rx.Set("url", attrs["url"])

	for key, attr := range map[string]string{"name": "comment", "loc": "loc", "antenna": "antenna"} {
		if v, ok := attrs[key]; ok {
			_ = rx.Set(attr, v)
		}
	}

	for key, attr := range map[string]string{"users": "users", "users_max": "maxusers", "asl": "altitude"} {
		v, ok := attrs[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			logger.Debug("Skipping KiwiSDR receiver with malformed counter", logger.Fields{
				"receiver": id,
				"field":    key,
				"value":    v,
			})
			return nil
		}
		_ = rx.Set(attr, n)
	}

	if v, ok := attrs["sw_version"]; ok {
		_ = rx.Set("device", strings.ReplaceAll(v, "_v", " "))
	}

	return rx
}
