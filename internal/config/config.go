// Package config loads application settings from a config file, a .env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Spotify  SpotifyConfig  `mapstructure:"spotify"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SpotifyConfig struct {
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	RedirectURL       string        `mapstructure:"redirect_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Capacity    int           `mapstructure:"capacity"`
	RecentLimit int           `mapstructure:"recent_limit"`
	Concurrency int           `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

var defaults = map[string]any{
	"server.addr":                 "127.0.0.1:8080",
	"spotify.client_id":           "",
	"spotify.client_secret":       "",
	"spotify.redirect_url":        "http://127.0.0.1:8080/callback",
	"spotify.requests_per_second": 10.0,
	"spotify.request_timeout":     "15s",
	"database.url":                "",
	"sync.interval":               "5m",
	"sync.capacity":               100,
	"sync.recent_limit":           50,
	"sync.concurrency":            1,
	"log.level":                   "info",
	"log.format":                  "text",
	"sentry.dsn":                  "",
	"sentry.environment":          "development",
}

// Load builds the configuration.
//
// Values are layered, lowest first: defaults, the config file, a .env file in
// the working directory, then environment variables such as
// SPOTIFY_CLIENT_ID or SYNC_INTERVAL. When path is empty, config.yaml is
// looked up in ./config and the working directory and may be absent.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Spotify dashboard calls it a redirect URI; accept both spellings.
	if err := v.BindEnv("spotify.redirect_url", "SPOTIFY_REDIRECT_URL", "SPOTIFY_REDIRECT_URI"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	var missing []string
	if c.Spotify.ClientID == "" {
		missing = append(missing, "spotify.client_id")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "spotify.client_secret")
	}
	if c.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required configuration not set: %s", strings.Join(missing, ", "))
	}

	switch {
	case c.Sync.Interval <= 0:
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	case c.Sync.Capacity <= 0:
		return fmt.Errorf("sync.capacity must be positive, got %d", c.Sync.Capacity)
	case c.Sync.RecentLimit < 1 || c.Sync.RecentLimit > 50:
		return fmt.Errorf("sync.recent_limit must be between 1 and 50, got %d", c.Sync.RecentLimit)
	case c.Sync.Concurrency < 1:
		return fmt.Errorf("sync.concurrency must be at least 1, got %d", c.Sync.Concurrency)
	case c.Spotify.RequestTimeout <= 0:
		return fmt.Errorf("spotify.request_timeout must be positive, got %s", c.Spotify.RequestTimeout)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
