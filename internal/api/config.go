// Package api provides the HTTP server for thermalwatch. The JSON endpoints
// live in the v2 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout = 30 * time.Second
	// engine calls on a cold HuggingFace Space routinely take over a minute
	DefaultWriteTimeout    = 180 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string
	Port string

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit   string // e.g. "10M"
	MetricsPath string // empty disables the Prometheus endpoint

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "10M",
		MetricsPath:     "/metrics",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	ws := settings.WebServer
	cfg.Host = ws.Host
	if ws.Port != "" {
		cfg.Port = ws.Port
	}
	if ws.BodyLimit != "" {
		cfg.BodyLimit = ws.BodyLimit
	}
	if len(ws.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = ws.AllowedOrigins
	}
	if ws.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = ws.ShutdownTimeout
	}

	cfg.MetricsPath = ""
	if settings.Metrics.Enabled {
		cfg.MetricsPath = settings.Metrics.Path
		if cfg.MetricsPath == "" {
			cfg.MetricsPath = "/metrics"
		}
	}

	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}
