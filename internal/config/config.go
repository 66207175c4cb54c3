// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	PublicURL string `env:"PUBLIC_URL"`
	DBPath    string `env:"DB_PATH" envDefault:"./data/dashboard.db"`

	Backend BackendConfig
	Session SessionConfig
	Log     LogConfig
	Otel    OtelConfig

	// TemplateDir serves page templates from disk and reloads them on change.
	// Empty means the embedded templates are used.
	TemplateDir string `env:"TEMPLATE_DIR"`
}

// BackendConfig controls the outbound API client.
type BackendConfig struct {
	URL string `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	// Timeout bounds a whole backend request. Zero leaves only the request context.
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
}

// SessionConfig controls browser sessions and device records.
type SessionConfig struct {
	Lifetime        time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	SweepInterval   time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	DeviceRetention time.Duration `env:"DEVICE_RETENTION" envDefault:"720h"`
}

// LogConfig controls the default slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// OtelConfig controls opt-in tracing export.
type OtelConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.Backend.URL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be >= 0")
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.PublicURL == "" ||
		strings.Contains(c.PublicURL, "localhost") ||
		strings.Contains(c.PublicURL, "127.0.0.1")
}

// TracingEnabled reports whether spans should be exported.
func (c *Config) TracingEnabled() bool {
	return c.Otel.Enabled && c.Otel.Endpoint != ""
}
