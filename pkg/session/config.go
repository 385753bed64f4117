package session

import (
	"fmt"
	"log/slog"

	"github.com/signstream/go-signstream/pkg/sampler"
)

// Config holds configuration for the session controller.
type Config struct {
	// Framerate is the target capture rate in frames per second.
	Framerate int

	// Quality is the JPEG quality used for sampled frames (1-100).
	Quality int

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Framerate: sampler.DefaultFramerate,
		Quality:   sampler.DefaultQuality,
		Logger:    slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Framerate < 1 {
		return fmt.Errorf("session: framerate must be at least 1, got %d", c.Framerate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("session: quality must be 1-100, got %d", c.Quality)
	}
	return nil
}

// Option is a functional option for configuring the controller.
type Option func(*Config)

// WithFramerate sets the capture rate in frames per second.
func WithFramerate(fps int) Option {
	return func(c *Config) {
		c.Framerate = fps
	}
}

// WithQuality sets the JPEG quality for sampled frames.
func WithQuality(q int) Option {
	return func(c *Config) {
		c.Quality = q
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
