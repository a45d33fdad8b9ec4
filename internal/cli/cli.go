package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/0xAF/owrx-markers/internal/config"
	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
	"github.com/0xAF/owrx-markers/internal/metrics"
	"github.com/0xAF/owrx-markers/internal/orchestrator"
	"github.com/0xAF/owrx-markers/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig   string
	flagFormat   string
	flagCategory string
	flagSort     string
	flagVerbose  bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "owrx-markers",
		Short: "Keep an OpenWebRX map populated with receivers, stations and repeaters",
		Long: `A marker database for the OpenWebRX map.
Loads static markers from files, scrapes the KiwiSDR, WebSDR and ReceiverBook
directories into a local cache, adds transmitters on the air and nearby
repeaters, and keeps the map in sync with hourly incremental updates.`,
		SilenceUsage: true,
	}

	// Define flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.String("data-dir", "~/.local/share/owrx-markers", "Data directory for the receivers cache")
	pf.Duration("refresh-period", storage.DefaultRefreshPeriod, "How long scraped receivers stay fresh")
	pf.Duration("http-timeout", 30*time.Second, "Timeout for each directory request")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	cmd.AddCommand(newRunCmd(v), newScrapeCmd(v), newShowCmd(v))

	return cmd
}

// loadConfig resolves and validates the configuration and sets up logging
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*config.Config, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stderr))

	return cfg, nil
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the marker refresh engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			return runEngine(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("publisher", config.PublisherDryRun, "Map publisher: dryrun or http")
	cmd.Flags().String("publisher-url", "", "Base URL of the map service (http publisher)")
	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address")
	cmd.Flags().String("schedule-file", "", "JSON dump of the broadcast schedule")
	cmd.Flags().String("repeaters-file", "", "JSON dump of the repeater database")

	return cmd
}

func runEngine(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	pub, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	m := metrics.New()

	engine := orchestrator.NewLazy(func() *orchestrator.Orchestrator {
		return comps.newOrchestrator(pub, m)
	})

	serverErr := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		go func() {
			serverErr <- m.Serve(ctx, cfg.MetricsAddr)
		}()
	}

	engine.Get().Start()
	defer engine.Get().Stop()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down", nil)
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}

func newScrapeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the receiver directories once and rewrite the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			comps, err := buildComponents(cfg)
			if err != nil {
				return err
			}

			set, results := comps.cache.Rebuild(cmd.Context(), comps.sources...)

			result := &ScrapeResult{
				ScrapedAt: time.Now().UTC(),
				CachePath: comps.cache.Path(),
				Total:     len(set),
				Sources:   make([]SourceResult, 0, len(results)),
			}
			for _, r := range results {
				result.Sources = append(result.Sources, SourceResult{
					Source:   r.Source,
					Count:    r.Count,
					Failed:   r.Failed,
					Duration: r.Duration.Round(time.Millisecond).String(),
				})
			}

			if err := WriteScrape(cmd.OutOrStdout(), result, format); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			if len(set) == 0 {
				return fmt.Errorf("no receivers scraped, cache left unchanged")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	return cmd
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the static and cached markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			order := SortOrder(strings.ToLower(flagSort))
			if !order.Valid() {
				return fmt.Errorf("invalid sort order: %s (must be 'id', 'mode' or 'distance')", flagSort)
			}
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			comps, err := buildComponents(cfg)
			if err != nil {
				return err
			}

			sets := map[marker.Category]marker.Set{
				marker.CategoryStatic: storage.LoadFiles(cfg.StaticPaths()),
			}
			if cached, err := comps.cache.Load(); err == nil {
				sets[marker.CategoryReceivers] = cached
			} else {
				logger.Warn("No usable receivers cache", logger.Fields{
					"path":  comps.cache.Path(),
					"error": err.Error(),
				})
			}

			result := &ShowResult{Markers: make(map[string][]*marker.Marker)}
			for _, category := range marker.Categories {
				set, ok := sets[category]
				if !ok || (flagCategory != "" && string(category) != flagCategory) {
					continue
				}
				markers := set.Sorted()
				sortMarkers(markers, order, cfg.Receiver.Lat, cfg.Receiver.Lon)
				result.Markers[string(category)] = markers
				result.Count += len(markers)
			}

			return WriteShow(cmd.OutOrStdout(), result, format, flagVerbose)
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagCategory, "category", "", "Only show one category: static or receivers")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByID), "Sort order: id, mode or distance")

	return cmd
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	// Stderr may reject fsync
	_ = logger.Default().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
