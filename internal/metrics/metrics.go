// Package metrics exposes the refresh engine's state as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "owrx_markers"

// Metrics holds the collectors of one engine on a private registry
type Metrics struct {
	registry *prometheus.Registry

	published      *prometheus.GaugeVec
	scraped        *prometheus.GaugeVec
	scrapeFailures *prometheus.CounterVec
	operations     *prometheus.CounterVec
	cycleSeconds   prometheus.Histogram

	healthy atomic.Bool
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published",
			Help:      "Markers currently published to the map, by category.",
		}, []string{"category"}),
		scraped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scraped",
			Help:      "Receivers returned by the last scrape, by source.",
		}, []string{"source"}),
		scrapeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_failures_total",
			Help:      "Failed scrapes, by source.",
		}, []string{"source"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_operations_total",
			Help:      "Operations sent to the map, by op.",
		}, []string{"op"}),
		cycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_seconds",
			Help:      "Duration of refresh cycles.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
	}

	m.registry.MustRegister(
		m.published,
		m.scraped,
		m.scrapeFailures,
		m.operations,
		m.cycleSeconds,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetPublished records how many markers of a category are on the map
func (m *Metrics) SetPublished(category string, n int) {
	m.published.WithLabelValues(category).Set(float64(n))
}

// ObserveScrape records one source's result
func (m *Metrics) ObserveScrape(source string, count int, failed bool) {
	m.scraped.WithLabelValues(source).Set(float64(count))
	if failed {
		m.scrapeFailures.WithLabelValues(source).Inc()
	}
}

// AddOperations counts n map operations of kind op
func (m *Metrics) AddOperations(op string, n int) {
	if n > 0 {
		m.operations.WithLabelValues(op).Add(float64(n))
	}
}

// ObserveCycle records the duration of one refresh cycle
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.cycleSeconds.Observe(d.Seconds())
}

// SetHealthy marks whether the initial publish has completed
func (m *Metrics) SetHealthy(ok bool) {
	m.healthy.Store(ok)
}

// Healthy reports the value last passed to SetHealthy
func (m *Metrics) Healthy() bool {
	return m.healthy.Load()
}
