package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

const (
	// DefaultTimeout bounds a single request to the map service
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is how often a failed request is repeated
	DefaultMaxRetries = 3

	userAgent = "owrx-markers/1.0 (github.com/0xAF/owrx-markers)"
)

// HTTP publishes to a map service over REST:
//
//	PUT    <base>/locations/{id}   body: locationRequest
//	DELETE <base>/locations/{id}
//
// 5xx responses and transport errors are retried with exponential backoff, 4xx
// responses are not. Retries stop as soon as the context is cancelled.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
	base       *sling.Sling
	maxRetries uint64
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// HTTPOption configures an HTTP publisher
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTP) {
		p.httpClient = c
	}
}

// WithRetry sets the retry count and the initial retry interval
func WithRetry(maxRetries uint64, initial time.Duration) HTTPOption {
	return func(p *HTTP) {
		p.maxRetries = maxRetries
		p.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = 10 * initial
			return b
		}
	}
}

type locationRequest struct {
	Mode     string         `json:"mode"`
	Expires  time.Time      `json:"expires"`
	Location *marker.Marker `json:"location"`
}

// NewHTTP creates a publisher for the map service at baseURL
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing publisher URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported publisher URL scheme %q", u.Scheme)
	}

	p := &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.base = sling.New().Client(p.httpClient).Set("User-Agent", userAgent)

	return p, nil
}

func (p *HTTP) locationURL(id string) string {
	return p.baseURL + "/locations/" + url.PathEscape(id)
}

// Update sends the marker to the map
func (p *HTTP) Update(ctx context.Context, id string, m *marker.Marker, category string, exp marker.Expiry) {
	body := &locationRequest{
		Mode:     category,
		Expires:  exp.Deadline(p.now()).UTC(),
		Location: m,
	}
	p.send(ctx, OpUpdate, id, func() *sling.Sling {
		return p.base.New().Put(p.locationURL(id)).BodyJSON(body)
	})
}

// Remove deletes the marker from the map
func (p *HTTP) Remove(ctx context.Context, id string) {
	p.send(ctx, OpRemove, id, func() *sling.Sling {
		return p.base.New().Delete(p.locationURL(id))
	})
}

func (p *HTTP) send(ctx context.Context, op Op, id string, build func() *sling.Sling) {
	if ctx.Err() != nil {
		return
	}

	attempts := 0
	operation := func() error {
		attempts++

		req, err := build().Request()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}

		resp, err := p.base.Do(req.WithContext(ctx), nil, nil)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	err := backoff.Retry(operation, b)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		logger.Warn("Publishing to map abandoned", logger.Fields{
			"op":       string(op),
			"id":       id,
			"attempts": attempts,
		})
	default:
		logger.Error("Publishing to map failed", logger.Fields{
			"op":       string(op),
			"id":       id,
			"endpoint": p.locationURL(id),
			"attempts": attempts,
		}, err)
	}
}
