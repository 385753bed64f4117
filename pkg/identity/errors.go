package identity

import "errors"

// Common errors returned by identity providers.
var (
	// ErrMissingCredentials is returned when client credentials are not provided.
	ErrMissingCredentials = errors.New("identity: client id and secret are required")

	// ErrNotAuthenticated is returned when no user has completed the auth flow.
	ErrNotAuthenticated = errors.New("identity: not authenticated")
)
