package sampler

import (
	"fmt"
	"time"
)

// DefaultFramerate is the sampling cadence in frames per second.
const DefaultFramerate = 30

// DefaultQuality is the JPEG quality factor. Kept low on purpose: frames
// cross the wire thirty times a second and fidelity matters less than size.
const DefaultQuality = 50

// Config holds sampling parameters.
type Config struct {
	// Interval is the wall-clock spacing between samples.
	Interval time.Duration

	// Quality is the JPEG quality factor (1-100).
	Quality int
}

// DefaultConfig returns the standard sampling configuration.
func DefaultConfig() Config {
	return Config{
		Interval: time.Second / DefaultFramerate,
		Quality:  DefaultQuality,
	}
}

// Option configures a sampler.
type Option func(*Config)

// WithFramerate sets the sampling cadence in frames per second.
func WithFramerate(fps int) Option {
	return func(c *Config) {
		if fps > 0 {
			c.Interval = time.Second / time.Duration(fps)
		}
	}
}

// WithInterval sets the wall-clock spacing between samples directly.
func WithInterval(d time.Duration) Option {
	return func(c *Config) { c.Interval = d }
}

// WithQuality sets the JPEG quality factor (1-100).
func WithQuality(q int) Option {
	return func(c *Config) { c.Quality = q }
}

// Validate checks that the config values are usable.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("sampler: interval %s must be positive", c.Interval)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("sampler: quality %d must be between 1 and 100", c.Quality)
	}
	return nil
}
