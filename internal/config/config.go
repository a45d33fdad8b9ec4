// Package config loads the settings of the marker engine.
//
// Values are resolved in order of precedence: command-line flags, OWRX_MARKERS_*
// environment variables, the optional YAML config file, then defaults. Nested keys
// map to environment variables with dots replaced by underscores, so markers.dir is
// read from OWRX_MARKERS_MARKERS_DIR.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/schedule"
	"github.com/0xAF/owrx-markers/internal/scraper"
	"github.com/0xAF/owrx-markers/internal/storage"
)

// EnvPrefix is the prefix of all environment variables
const EnvPrefix = "OWRX_MARKERS"

// Publisher kinds
const (
	PublisherDryRun = "dryrun"
	PublisherHTTP   = "http"
)

// Config holds all settings
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	RefreshPeriod time.Duration `mapstructure:"refresh_period"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	LogLevel      string        `mapstructure:"log_level"`

	Markers   MarkersConfig   `mapstructure:"markers"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Repeaters RepeatersConfig `mapstructure:"repeaters"`
	Receiver  ReceiverConfig  `mapstructure:"receiver"`

	ScheduleFile  string `mapstructure:"schedule_file"`
	RepeatersFile string `mapstructure:"repeaters_file"`

	Publisher    string `mapstructure:"publisher"`
	PublisherURL string `mapstructure:"publisher_url"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// MarkersConfig locates the static marker files
type MarkersConfig struct {
	File       string `mapstructure:"file"`
	SystemFile string `mapstructure:"system_file"`
	Dir        string `mapstructure:"dir"`
}

// SourcesConfig holds the receiver directory endpoints. An empty endpoint disables
// the source.
type SourcesConfig struct {
	KiwiSDR      string `mapstructure:"kiwisdr"`
	WebSDR       string `mapstructure:"websdr"`
	ReceiverBook string `mapstructure:"receiverbook"`
}

// RepeatersConfig limits which repeaters are shown
type RepeatersConfig struct {
	RadiusKm float64 `mapstructure:"radius_km"`
}

// ReceiverConfig is the position repeater range is measured from
type ReceiverConfig struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// Flags maps config keys to the command-line flags that override them
var Flags = map[string]string{
	"data_dir":       "data-dir",
	"refresh_period": "refresh-period",
	"http_timeout":   "http-timeout",
	"log_level":      "log-level",
	"publisher":      "publisher",
	"publisher_url":  "publisher-url",
	"metrics_addr":   "metrics-addr",
	"schedule_file":  "schedule-file",
	"repeaters_file": "repeaters-file",
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.local/share/owrx-markers")
	v.SetDefault("refresh_period", storage.DefaultRefreshPeriod)
	v.SetDefault("http_timeout", scraper.Timeout)
	v.SetDefault("log_level", string(logger.LevelInfo))

	paths := storage.NewDefaultPaths()
	v.SetDefault("markers.file", paths.File)
	v.SetDefault("markers.system_file", paths.SystemFile)
	v.SetDefault("markers.dir", paths.Dir)

	v.SetDefault("sources.kiwisdr", scraper.KiwiSDRURL)
	v.SetDefault("sources.websdr", scraper.WebSDRURL)
	v.SetDefault("sources.receiverbook", scraper.ReceiverBookURL)

	v.SetDefault("schedule_file", "")
	v.SetDefault("repeaters_file", "")
	v.SetDefault("repeaters.radius_km", float64(schedule.DefaultRadiusKm))
	v.SetDefault("receiver.lat", 0.0)
	v.SetDefault("receiver.lon", 0.0)

	v.SetDefault("publisher", PublisherDryRun)
	v.SetDefault("publisher_url", "")
	v.SetDefault("metrics_addr", "")
}

// BindFlags binds every flag in Flags that exists in fs
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range Flags {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves the configuration. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail later
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.RefreshPeriod <= 0 {
		errs = append(errs, fmt.Errorf("refresh_period must be positive, got %s", c.RefreshPeriod))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Repeaters.RadiusKm < 0 {
		errs = append(errs, fmt.Errorf("repeaters.radius_km must not be negative, got %v", c.Repeaters.RadiusKm))
	}

	switch c.Publisher {
	case PublisherDryRun:
	case PublisherHTTP:
		if c.PublisherURL == "" {
			errs = append(errs, errors.New("publisher_url is required for the http publisher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown publisher %q (must be %q or %q)", c.Publisher, PublisherDryRun, PublisherHTTP))
	}

	return errors.Join(errs...)
}

// StaticPaths returns the resolver for the configured static marker files
func (c *Config) StaticPaths() storage.DefaultPaths {
	return storage.DefaultPaths{
		File:       c.Markers.File,
		SystemFile: c.Markers.SystemFile,
		Dir:        c.Markers.Dir,
	}
}
