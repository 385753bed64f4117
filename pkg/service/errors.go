package service

import "errors"

// Sentinel errors for the service package.
var (
	// ErrNilRecognizer indicates no recognizer was provided.
	ErrNilRecognizer = errors.New("service: recognizer is required")

	// ErrMissingPort indicates no listen port was configured.
	ErrMissingPort = errors.New("service: port is required")
)
