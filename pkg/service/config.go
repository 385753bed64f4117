package service

import (
	"log/slog"

	"github.com/signstream/go-signstream/internal/config"
)

// Config holds the gateway server configuration.
type Config struct {
	// Port is the TCP port the server listens on.
	Port string

	// CORSOrigins is the comma-separated allowed origins list. "*"
	// allows all origins.
	CORSOrigins string

	// Version is reported by the status endpoint.
	Version string

	// Debug enables per-request logging.
	Debug bool

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:        config.DefaultPort,
		CORSOrigins: "*",
		Version:     "1.0.0",
		Logger:      slog.Default(),
	}
}

// FromEnv returns DefaultConfig with PORT and CORS_ORIGINS applied.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Port = config.Port()
	cfg.CORSOrigins = config.CORSOrigins()
	return cfg
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return ErrMissingPort
	}
	return nil
}

// Option is a functional option for configuring the server.
type Option func(*Config)

// WithPort sets the listen port.
func WithPort(port string) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins string) Option {
	return func(c *Config) {
		c.CORSOrigins = origins
	}
}

// WithVersion sets the version reported by the status endpoint.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}

// WithDebug enables per-request logging.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
