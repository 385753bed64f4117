// Package config provides configuration helpers for go-signstream commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default service configuration.
const (
	DefaultPort       = "8000"
	DefaultServiceURL = "http://localhost:8000"
	DefaultBackendURL = "http://localhost:5000"
)

// Getenv returns the value of key or def when unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetenvInt returns the integer value of key or def when unset or invalid.
func GetenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetenvFloat returns the float value of key or def when unset or invalid.
func GetenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetenvBool returns the boolean value of key or def when unset or invalid.
func GetenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetenvSeconds reads key as a floating-point number of seconds.
// Falls back to def when unset or invalid.
func GetenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// Port returns the listen port from the PORT env var.
func Port() string {
	return Getenv("PORT", DefaultPort)
}

// ServiceURL returns the recognition service base URL from
// SIGNSTREAM_SERVICE_URL. Falls back to the local default.
func ServiceURL() string {
	return Getenv("SIGNSTREAM_SERVICE_URL", DefaultServiceURL)
}

// BackendURL returns the persistence backend base URL from
// SIGNSTREAM_BACKEND_URL. Falls back to the local default.
func BackendURL() string {
	return Getenv("SIGNSTREAM_BACKEND_URL", DefaultBackendURL)
}

// CORSOrigins returns the allowed CORS origins from CORS_ORIGINS.
// "*" allows all origins.
func CORSOrigins() string {
	return Getenv("CORS_ORIGINS", "*")
}
