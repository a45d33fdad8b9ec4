package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xAF/owrx-markers/internal/scraper"
	"github.com/0xAF/owrx-markers/internal/storage"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.RefreshPeriod != storage.DefaultRefreshPeriod {
		t.Errorf("RefreshPeriod = %v, want %v", cfg.RefreshPeriod, storage.DefaultRefreshPeriod)
	}
	if cfg.HTTPTimeout != scraper.Timeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, scraper.Timeout)
	}
	if cfg.Sources.KiwiSDR != scraper.KiwiSDRURL {
		t.Errorf("Sources.KiwiSDR = %q", cfg.Sources.KiwiSDR)
	}
	if got, want := cfg.StaticPaths(), storage.NewDefaultPaths(); got != want {
		t.Errorf("StaticPaths() = %+v, want %+v", got, want)
	}
	if cfg.Repeaters.RadiusKm != 200 {
		t.Errorf("Repeaters.RadiusKm = %v, want 200", cfg.Repeaters.RadiusKm)
	}
	if cfg.Publisher != PublisherDryRun {
		t.Errorf("Publisher = %q, want %q", cfg.Publisher, PublisherDryRun)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `refresh_period: 12h
http_timeout: 5s
log_level: debug
markers:
  dir: /srv/markers.d
receiver:
  lat: 42.7
  lon: 23.3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OWRX_MARKERS_HTTP_TIMEOUT", "7s")
	t.Setenv("OWRX_MARKERS_LOG_LEVEL", "warn")
	t.Setenv("OWRX_MARKERS_MARKERS_DIR", "/env/markers.d")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.Duration("refresh-period", storage.DefaultRefreshPeriod, "")
	if err := fs.Parse([]string{"--log-level=error"}); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags() error: %v", err)
	}
	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"flag beats env", cfg.LogLevel, "error"},
		{"env beats file", cfg.HTTPTimeout, 7 * time.Second},
		{"nested env beats file", cfg.Markers.Dir, "/env/markers.d"},
		{"file beats unset flag default", cfg.RefreshPeriod, 12 * time.Hour},
		{"file beats default", cfg.Receiver.Lat, 42.7},
		{"default", cfg.Markers.File, storage.DefaultMarkersFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataDir:       "/tmp/owrx",
			RefreshPeriod: time.Hour,
			HTTPTimeout:   time.Second,
			LogLevel:      "info",
			Publisher:     PublisherDryRun,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero refresh period", func(c *Config) { c.RefreshPeriod = 0 }, "refresh_period"},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, "http_timeout"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"http without url", func(c *Config) { c.Publisher = PublisherHTTP }, "publisher_url"},
		{"http with url", func(c *Config) {
			c.Publisher = PublisherHTTP
			c.PublisherURL = "http://localhost:8073/api"
		}, ""},
		{"unknown publisher", func(c *Config) { c.Publisher = "carrier-pigeon" }, "unknown publisher"},
		{"negative radius", func(c *Config) { c.Repeaters.RadiusKm = -1 }, "radius_km"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
