package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transport package.
var (
	// ErrMissingURL indicates no service URL was provided.
	ErrMissingURL = errors.New("transport: service URL is required")

	// ErrNotConnected indicates the channel is not connected.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrAlreadyConnected indicates the channel is already open.
	ErrAlreadyConnected = errors.New("transport: already connected")

	// ErrConnectionFailed indicates the connection could not be established.
	ErrConnectionFailed = errors.New("transport: connection failed")

	// ErrConnectionClosed indicates the connection was closed unexpectedly.
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrSendFailed indicates writing to the wire failed.
	ErrSendFailed = errors.New("transport: send failed")
)

// ConnectionError represents a WebSocket connection error.
type ConnectionError struct {
	// Reason describes why the connection failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// StatusCode is the HTTP status from a failed handshake, if any.
	StatusCode int
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: connection error (HTTP %d): %s: %v", e.StatusCode, e.Reason, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("transport: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("transport: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, statusCode int) *ConnectionError {
	return &ConnectionError{
		Reason:     reason,
		Cause:      cause,
		StatusCode: statusCode,
	}
}

// IsConnectionError returns true if the error is a handshake or wire failure.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrConnectionClosed)
}
