package session

import "errors"

// Sentinel errors for the session package.
var (
	// ErrNilSource indicates no capture source was provided.
	ErrNilSource = errors.New("session: capture source is required")

	// ErrNilChannel indicates no transport channel was provided.
	ErrNilChannel = errors.New("session: transport channel is required")

	// ErrNotIdle indicates Start was called on a session already underway.
	ErrNotIdle = errors.New("session: already started")

	// ErrNotActive indicates Pause was called outside an active session.
	ErrNotActive = errors.New("session: not active")

	// ErrNotPaused indicates Resume was called outside a paused session.
	ErrNotPaused = errors.New("session: not paused")
)
