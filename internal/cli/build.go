package cli

import (
	"fmt"
	"os"

	"github.com/0xAF/owrx-markers/internal/config"
	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/metrics"
	"github.com/0xAF/owrx-markers/internal/orchestrator"
	"github.com/0xAF/owrx-markers/internal/publisher"
	"github.com/0xAF/owrx-markers/internal/schedule"
	"github.com/0xAF/owrx-markers/internal/scraper"
	"github.com/0xAF/owrx-markers/internal/storage"
)

// components holds everything built from one configuration
type components struct {
	cfg       *config.Config
	cache     *storage.Cache
	sources   []scraper.Source
	schedule  schedule.ScheduleProvider
	repeaters schedule.RepeaterProvider
}

func buildComponents(cfg *config.Config) (*components, error) {
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	c := &components{
		cfg:   cfg,
		cache: storage.NewCache(store.CachePath(), cfg.RefreshPeriod),
	}

	client := scraper.NewClient(cfg.HTTPTimeout)
	if cfg.Sources.KiwiSDR != "" {
		c.sources = append(c.sources, scraper.NewKiwiSDR(client, cfg.Sources.KiwiSDR))
	}
	if cfg.Sources.WebSDR != "" {
		c.sources = append(c.sources, scraper.NewWebSDR(client, cfg.Sources.WebSDR))
	}
	if cfg.Sources.ReceiverBook != "" {
		c.sources = append(c.sources, scraper.NewReceiverBook(client, cfg.Sources.ReceiverBook))
	}

	if cfg.ScheduleFile != "" {
		c.schedule = schedule.NewFileSchedule(cfg.ScheduleFile)
	}
	if cfg.RepeatersFile != "" {
		c.repeaters = schedule.NewFileRepeaters(cfg.RepeatersFile, cfg.Receiver.Lat, cfg.Receiver.Lon)
	}

	return c, nil
}

func newPublisher(cfg *config.Config) (publisher.Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherHTTP:
		return publisher.NewHTTP(cfg.PublisherURL)
	default:
		return publisher.NewDryRun(os.Stdout), nil
	}
}

// newOrchestrator wires the engine. m may be nil.
func (c *components) newOrchestrator(pub publisher.Publisher, m *metrics.Metrics) *orchestrator.Orchestrator {
	logger.Debug("Building orchestrator", logger.Fields{
		"sources":   len(c.sources),
		"cache":     c.cache.Path(),
		"schedule":  c.cfg.ScheduleFile,
		"repeaters": c.cfg.RepeatersFile,
	})

	return orchestrator.New(orchestrator.Options{
		Static:    c.cfg.StaticPaths(),
		Cache:     c.cache,
		Sources:   c.sources,
		Schedule:  c.schedule,
		Repeaters: c.repeaters,
		RadiusKm:  c.cfg.Repeaters.RadiusKm,
		Publisher: pub,
		Metrics:   m,
	})
}
