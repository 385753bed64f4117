package capture

import (
	"errors"
	"fmt"
	"time"
)

// Config holds camera acquisition parameters.
type Config struct {
	// Device is the local camera index (e.g. /dev/video0 is 0).
	Device int

	// Width and Height are the requested capture resolution.
	Width  int
	Height int

	// Framerate is the requested device frame rate.
	Framerate int

	// WarmupTimeout bounds how long Acquire waits for the first frame.
	WarmupTimeout time.Duration
}

// DefaultConfig returns the standard streaming configuration.
func DefaultConfig() Config {
	return Config{
		Device:        0,
		Width:         640,
		Height:        480,
		Framerate:     30,
		WarmupTimeout: 5 * time.Second,
	}
}

// Option configures a camera source.
type Option func(*Config)

// WithDevice selects the local camera index.
func WithDevice(index int) Option {
	return func(c *Config) { c.Device = index }
}

// WithResolution sets the requested capture resolution.
func WithResolution(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithFramerate sets the requested device frame rate.
func WithFramerate(fps int) Option {
	return func(c *Config) { c.Framerate = fps }
}

// WithWarmupTimeout bounds the wait for the first frame during Acquire.
func WithWarmupTimeout(d time.Duration) Option {
	return func(c *Config) { c.WarmupTimeout = d }
}

// Validate checks that the config values are usable.
func (c *Config) Validate() error {
	if c.Device < 0 {
		return errors.New("capture: device index must not be negative")
	}
	if c.Width < 160 || c.Height < 120 {
		return fmt.Errorf("capture: resolution %dx%d below minimum 160x120", c.Width, c.Height)
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		return fmt.Errorf("capture: framerate %d must be between 1 and 120", c.Framerate)
	}
	if c.WarmupTimeout <= 0 {
		return errors.New("capture: warmup timeout must be positive")
	}
	return nil
}
