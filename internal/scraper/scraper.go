package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	UserAgent = "owrx-markers/1.0 (github.com/0xAF/owrx-markers)"
	Timeout   = 30 * time.Second

	// MaxResponseSize caps how much of a directory page is read (32MB)
	MaxResponseSize = 32 * 1024 * 1024
)

// Source is one receiver directory
type Source interface {
	// Name identifies the source in logs and metrics
	Name() string
	// Endpoint is the URL the source is fetched from
	Endpoint() string
	// Scrape fetches and parses the directory
	Scrape(ctx context.Context) (marker.Set, error)
}

// Client performs the HTTP requests for all sources
type Client struct {
	httpClient *http.Client
	base       *sling.Sling
}

// NewClient creates a Client whose requests time out after timeout.
// If timeout is 0, Timeout is used.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = Timeout
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		httpClient: httpClient,
		base:       sling.New().Client(httpClient).Set("User-Agent", UserAgent),
	}
}

// request builds a GET request for endpoint bound to ctx
func (c *Client) request(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := c.base.New().Get(endpoint).Request()
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req.WithContext(ctx), nil
}

// Get fetches endpoint and returns the response body
func (c *Client) Get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := c.request(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}

	return body, nil
}

// GetJSON fetches endpoint and decodes the body into v with the given decoder
func (c *Client) GetJSON(ctx context.Context, endpoint string, decoder sling.ResponseDecoder, v interface{}) error {
	req, err := c.request(ctx, endpoint)
	if err != nil {
		return err
	}

	resp, err := c.base.New().ResponseDecoder(decoder).Do(req, v, nil)
	if err != nil {
		return fmt.Errorf("fetching list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// fetch runs one source and never fails: any error is logged and an empty set is
// returned in its place, with failed set.
func fetch(ctx context.Context, src Source) (result marker.Set, failed bool) {
	fields := logger.Fields{
		"source":   src.Name(),
		"endpoint": src.Endpoint(),
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scraper panicked", fields, fmt.Errorf("%v", r))
			result, failed = marker.NewSet(), true
		}
	}()

	logger.Info("Scraping receiver directory", fields)

	set, err := src.Scrape(ctx)
	if err != nil {
		logger.Error("Scraping receiver directory failed", fields, err)
		return marker.NewSet(), true
	}

	fields["count"] = len(set)
	logger.Info("Scraped receiver directory", fields)
	return set, false
}

// Result summarizes one source's contribution to a scrape
type Result struct {
	Source   string
	Count    int
	Failed   bool
	Duration time.Duration
}

// All fetches every source in order and unions the results. Later sources win when
// two directories list the same receiver.
func All(ctx context.Context, sources ...Source) (marker.Set, []Result) {
	union := marker.NewSet()
	results := make([]Result, 0, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		set, failed := fetch(ctx, src)
		union.Merge(set)
		results = append(results, Result{
			Source:   src.Name(),
			Count:    len(set),
			Failed:   failed,
			Duration: time.Since(start),
		})
	}

	return union, results
}

// HostID extracts the receiver ID from a URL: the lower-cased host without scheme,
// credentials, port, path or query.
func HostID(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	if u, err := url.Parse(s); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}

	// Unparseable URL: cut by hand
	s = s[strings.Index(s, "://")+3:]
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s, "]") {
		s = s[:i]
	}
	return strings.ToLower(s)
}
