package backend

import (
	"errors"
	"fmt"
)

// Common errors returned by the backend client.
var (
	// ErrNilProvider is returned when no identity provider is given.
	ErrNilProvider = errors.New("backend: identity provider is required")

	// ErrMissingBaseURL is returned when the base URL is empty.
	ErrMissingBaseURL = errors.New("backend: base URL is required")

	// ErrUpstreamUnavailable is returned when the backend cannot be
	// reached or answers with a server error.
	ErrUpstreamUnavailable = errors.New("backend: upstream unavailable")
)

// APIError is a rejection from the backend (HTTP 4xx).
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the error message from the backend.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend: API error %d: %s", e.Status, e.Message)
}

// IsUnauthorized returns true if the bearer token was rejected (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.Status == 401
}
