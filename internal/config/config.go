// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrWorkflowURLRequired is returned when WORKFLOW_URL is not set.
	ErrWorkflowURLRequired = errors.New("config: WORKFLOW_URL is required")
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidTimeout is returned when WORKFLOW_TIMEOUT is negative.
	ErrInvalidTimeout = errors.New("config: WORKFLOW_TIMEOUT must not be negative")
)

// DefaultEnvFiles are loaded by Load in precedence order.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Workflow settings
	WorkflowURL     string        `env:"WORKFLOW_URL" json:"workflow_url"`
	WorkflowTimeout time.Duration `env:"WORKFLOW_TIMEOUT, default=0s" json:"workflow_timeout"`
	PlaceholderURL  string        `env:"PLACEHOLDER_URL" json:"placeholder_url,omitempty"`

	// Observability settings
	MetricsEnabled bool   `env:"METRICS_ENABLED, default=true" json:"metrics_enabled"`
	TracingEnabled bool   `env:"TRACING_ENABLED, default=false" json:"tracing_enabled"` // spans to stderr
	LogFormat      string `env:"LOG_FORMAT, default=text" json:"log_format"`            // "json" or "text"
	LogLevel       string `env:"LOG_LEVEL, default=info" json:"log_level"`              // "debug", "info", "warn", "error"
}

// WorkflowConfigured returns true if a workflow endpoint is set.
func (c *Config) WorkflowConfigured() bool {
	return strings.TrimSpace(c.WorkflowURL) != ""
}

// Load reads DefaultEnvFiles, then configuration from environment variables
// using go-envconfig. Values already in the environment are never overridden.
func Load() (*Config, error) {
	return LoadFiles(DefaultEnvFiles...)
}

// LoadFiles is Load with an explicit list of env files. Earlier files win
// over later ones; missing files are skipped.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration. A missing workflow endpoint is reported
// as ErrWorkflowURLRequired; callers may treat it as a warning.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.WorkflowTimeout < 0 {
		return ErrInvalidTimeout
	}
	if !c.WorkflowConfigured() {
		return ErrWorkflowURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, WorkflowURL: %s, WorkflowTimeout: %s, PlaceholderURL: %s, MetricsEnabled: %t, TracingEnabled: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.WorkflowURL,
		c.WorkflowTimeout,
		c.PlaceholderURL,
		c.MetricsEnabled,
		c.TracingEnabled,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
