// Package identity supplies the bearer token and user profile the
// application forwards to its own backend on first load.
//
// Provider internals stay out of scope: the backend only ever sees the
// token string and the Profile fields.
package identity

import (
	"context"
	"time"
)

// Profile is the externally-sourced user identity.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider is an identity source.
type Provider interface {
	// Token returns a bearer token for backend calls.
	Token(ctx context.Context) (string, error)

	// Profile returns the authenticated user's profile.
	Profile(ctx context.Context) (*Profile, error)
}

// Static is a fixed-credential provider for tests and development.
type Static struct {
	AccessToken string
	User        Profile
}

// NewStatic creates a provider that always returns the given token and
// profile.
func NewStatic(token string, user Profile) *Static {
	return &Static{AccessToken: token, User: user}
}

// Token implements Provider.
func (s *Static) Token(ctx context.Context) (string, error) {
	if s.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	return s.AccessToken, nil
}

// Profile implements Provider.
func (s *Static) Profile(ctx context.Context) (*Profile, error) {
	if s.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	p := s.User
	return &p, nil
}

// Ensure Static implements Provider.
var _ Provider = (*Static)(nil)
