package transport

import (
	"log/slog"
	"time"
)

// Config holds configuration for the channel client.
type Config struct {
	// URL is the full WebSocket endpoint, e.g.
	// ws://localhost:8000/ws/asl-recognition.
	URL string

	// HandshakeTimeout bounds the WebSocket dial and upgrade.
	HandshakeTimeout time.Duration

	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// Option is a functional option for configuring the channel client.
type Option func(*Config)

// WithURL sets the WebSocket endpoint.
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithWriteTimeout sets the per-message write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
