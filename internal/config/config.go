// Package config loads the program configuration from built-in
// defaults, an optional wetterdeck.yaml file and WETTERDECK_*
// environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tkrause/wetterdeck/internal/database"
)

// Config holds all configuration for the application.
type Config struct {
	Station StationConfig
	Sources SourcesConfig
	Fetch   FetchConfig
	Refresh RefreshConfig
	Render  RenderConfig
	Log     LogConfig
	Data    DataConfig
}

// StationConfig selects the weather station to display. An empty Name
// with non-zero coordinates requests a nearest-station lookup.
type StationConfig struct {
	Name       string
	Number     int
	Identifier string
	Latitude   float64
	Longitude  float64
}

// SourcesConfig lists the enabled sources in merge order.
type SourcesConfig struct {
	Enabled []string // dwd, w24, won
}

// FetchConfig bounds the HTTP transport.
type FetchConfig struct {
	Attempts int
	Timeout  time.Duration
}

// RefreshConfig controls the periodic update cycle.
type RefreshConfig struct {
	Period time.Duration
}

// RenderConfig selects and tunes the output channel.
type RenderConfig struct {
	Mode string // tui, console, image, daemon
	Dark bool
	Out  string // PNG target of the image mode
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// DataConfig locates the station database and the shapefile cache.
type DataConfig struct {
	Dir string
}

// Load reads configuration from file and environment variables. With
// an empty path the file is searched in the working directory and in
// ~/.wetterdeck and may be absent; an explicitly given path must
// exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wetterdeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.wetterdeck")
	}

	v.SetDefault("station.name", "")
	v.SetDefault("station.number", 0)
	v.SetDefault("station.identifier", "")
	v.SetDefault("station.latitude", 0.0)
	v.SetDefault("station.longitude", 0.0)
	v.SetDefault("sources.enabled", []string{"dwd"})
	v.SetDefault("fetch.attempts", 3)
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("refresh.period", 10*time.Minute)
	v.SetDefault("render.mode", "tui")
	v.SetDefault("render.dark", false)
	v.SetDefault("render.out", "wetterdeck.png")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("data.dir", defaultDataDir())

	v.SetEnvPrefix("WETTERDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing files are fine when searching, we have defaults. An
		// explicit path must be readable.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".wetterdeck")
}

// DatabasePath returns the path of the shared cache database inside
// the data directory.
func (c *Config) DatabasePath() string {
	return database.Path(c.Data.Dir)
}

// NewLogger creates a slog.Logger based on the configuration. Logs go
// to stderr; stdout belongs to the renderers.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
