package backend

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/signstream/go-signstream/internal/config"
)

// Config holds settings for the backend client.
type Config struct {
	// BaseURL is the backend's base address.
	BaseURL string

	// Timeout bounds each request.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: config.DefaultBackendURL,
		Timeout: 15 * time.Second,
		Logger:  slog.Default(),
	}
}

// FromEnv returns a Config populated from the environment.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.BaseURL = config.BackendURL()
	return cfg
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backend: timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Option configures the backend client.
type Option func(*Config)

// WithBaseURL sets the backend base address.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
