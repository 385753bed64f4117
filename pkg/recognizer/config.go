package recognizer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/signstream/go-signstream/internal/config"
)

// Config holds the assembly tuning knobs.
type Config struct {
	// Threshold is the minimum confidence for a prediction to count.
	Threshold float64

	// Interval is the prediction rate gate; frames arriving inside it get
	// the cached state back.
	Interval time.Duration

	// StabilityWindow is how many recent predictions the stability check
	// looks at.
	StabilityWindow int

	// Majority is the fraction of the window one letter must hold.
	Majority float64

	// RequiredHold is how long a stable candidate must persist before it
	// is appended.
	RequiredHold time.Duration

	// Cooldown is the minimum time between appended letters.
	Cooldown time.Duration

	// PauseThreshold is the number of consecutive hand-free frames that
	// ends a word; twice that triggers sentence analysis.
	PauseThreshold int

	// MotionLabels are letters signed with movement; they skip the
	// stability window and append immediately.
	MotionLabels []string

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the tuned production defaults.
func DefaultConfig() *Config {
	return &Config{
		Threshold:       0.7,
		Interval:        200 * time.Millisecond,
		StabilityWindow: 8,
		Majority:        0.85,
		RequiredHold:    0,
		Cooldown:        1500 * time.Millisecond,
		PauseThreshold:  10,
		MotionLabels:    []string{"J"},
		Logger:          slog.Default(),
	}
}

// FromEnv returns DefaultConfig with environment overrides applied:
// PREDICTION_THRESHOLD, STABLE_THRESHOLD, REQUIRED_HOLD_TIME and
// COOLDOWN_TIME (both in seconds).
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Threshold = config.GetenvFloat("PREDICTION_THRESHOLD", cfg.Threshold)
	cfg.StabilityWindow = config.GetenvInt("STABLE_THRESHOLD", cfg.StabilityWindow)
	cfg.RequiredHold = config.GetenvSeconds("REQUIRED_HOLD_TIME", cfg.RequiredHold)
	cfg.Cooldown = config.GetenvSeconds("COOLDOWN_TIME", cfg.Cooldown)
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
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("recognizer: threshold must be 0-1, got %v", c.Threshold)
	}
	if c.Interval < 0 {
		return fmt.Errorf("recognizer: interval must not be negative, got %v", c.Interval)
	}
	if c.StabilityWindow < 1 {
		return fmt.Errorf("recognizer: stability window must be at least 1, got %d", c.StabilityWindow)
	}
	if c.Majority <= 0 || c.Majority > 1 {
		return fmt.Errorf("recognizer: majority must be in (0,1], got %v", c.Majority)
	}
	if c.RequiredHold < 0 {
		return fmt.Errorf("recognizer: required hold must not be negative, got %v", c.RequiredHold)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("recognizer: cooldown must not be negative, got %v", c.Cooldown)
	}
	if c.PauseThreshold < 1 {
		return fmt.Errorf("recognizer: pause threshold must be at least 1, got %d", c.PauseThreshold)
	}
	return nil
}

// Option is a functional option for configuring the recognizer.
type Option func(*Config)

// WithThreshold sets the minimum prediction confidence.
func WithThreshold(t float64) Option {
	return func(c *Config) {
		c.Threshold = t
	}
}

// WithInterval sets the prediction rate gate.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

// WithStabilityWindow sets the stability window size.
func WithStabilityWindow(n int) Option {
	return func(c *Config) {
		c.StabilityWindow = n
	}
}

// WithMajority sets the stability majority fraction.
func WithMajority(m float64) Option {
	return func(c *Config) {
		c.Majority = m
	}
}

// WithRequiredHold sets the candidate hold time.
func WithRequiredHold(d time.Duration) Option {
	return func(c *Config) {
		c.RequiredHold = d
	}
}

// WithCooldown sets the time between appended letters.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		c.Cooldown = d
	}
}

// WithPauseThreshold sets the hand-free frame count that ends a word.
func WithPauseThreshold(n int) Option {
	return func(c *Config) {
		c.PauseThreshold = n
	}
}

// WithMotionLabels sets the letters that bypass the stability window.
func WithMotionLabels(labels ...string) Option {
	return func(c *Config) {
		c.MotionLabels = labels
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
