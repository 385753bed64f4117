package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const exchangeTimeout = 30 * time.Second

// GoogleConfig configures the Google identity provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// RedirectURL is where Google sends the user after consent.
	// Defaults to the local web frontend callback.
	RedirectURL string

	// TokenPath is where the OAuth token is cached between sessions.
	// Defaults to ~/.signstream/google_token.json.
	TokenPath string

	// ProfilePath is where the first-seen record is kept. Google's
	// userinfo endpoint has no account creation time, so the first
	// fetch is timestamped here. Defaults to google_profile.json next
	// to the token cache.
	ProfilePath string

	// Endpoint overrides the OAuth endpoints. Used by tests.
	Endpoint oauth2.Endpoint

	// APIEndpoint overrides the userinfo API base URL. Used by tests.
	APIEndpoint string

	Logger *slog.Logger
}

// Google authenticates users against Google OAuth and serves their
// userinfo profile. Tokens are cached on disk so a session survives
// process restarts.
type Google struct {
	config      *oauth2.Config
	tokenPath   string
	profilePath string
	apiEndpoint string
	logger      *slog.Logger

	mu    sync.RWMutex
	token *oauth2.Token
}

// firstSeenRecord pins the timestamp of the first profile fetch for an
// account. Refetches reuse it so CreatedAt stays stable.
type firstSeenRecord struct {
	ID        string    `json:"id"`
	FirstSeen time.Time `json:"first_seen"`
}

// NewGoogle creates a Google identity provider. A token cached by an
// earlier session is picked up automatically.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:3000/auth/callback"
	}

	if cfg.TokenPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("identity: resolve home directory: %w", err)
		}
		cfg.TokenPath = filepath.Join(homeDir, ".signstream", "google_token.json")
	}

	if cfg.ProfilePath == "" {
		cfg.ProfilePath = filepath.Join(filepath.Dir(cfg.TokenPath), "google_profile.json")
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		tokenPath:   cfg.TokenPath,
		profilePath: cfg.ProfilePath,
		apiEndpoint: cfg.APIEndpoint,
		logger:      cfg.Logger.With("component", "identity.google"),
	}

	if err := g.loadToken(); err == nil {
		g.logger.Debug("loaded cached token", "path", g.tokenPath)
	}

	return g, nil
}

// AuthURL returns the consent URL the user must visit to authorize the
// application.
func (g *Google) AuthURL() string {
	return g.config.AuthCodeURL("signstream-auth", oauth2.AccessTypeOffline)
}

// Exchange trades the consent code for a token and caches it.
func (g *Google) Exchange(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("identity: code exchange failed: %w", err)
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	if err := g.saveToken(); err != nil {
		g.logger.Warn("could not cache token", "error", err)
	}

	g.logger.Info("user authenticated")
	return nil
}

// Authenticated reports whether a usable token is present.
func (g *Google) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil && g.token.Valid()
}

// Token returns a bearer access token, refreshing it first when the
// cached one has expired.
func (g *Google) Token(ctx context.Context) (string, error) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == nil {
		return "", ErrNotAuthenticated
	}

	fresh, err := g.config.TokenSource(ctx, token).Token()
	if err != nil {
		return "", fmt.Errorf("identity: token refresh failed: %w", err)
	}

	if fresh.AccessToken != token.AccessToken {
		g.mu.Lock()
		g.token = fresh
		g.mu.Unlock()

		if err := g.saveToken(); err != nil {
			g.logger.Warn("could not cache refreshed token", "error", err)
		}
	}

	return fresh.AccessToken, nil
}

// Profile fetches the authenticated user's profile from the userinfo
// endpoint.
func (g *Google) Profile(ctx context.Context) (*Profile, error) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == nil {
		return nil, ErrNotAuthenticated
	}

	opts := []option.ClientOption{
		option.WithTokenSource(g.config.TokenSource(ctx, token)),
	}
	if g.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.apiEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity: create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("identity: userinfo fetch failed: %w", err)
	}

	return &Profile{
		ID:        info.Id,
		Name:      info.Name,
		Email:     info.Email,
		AvatarURL: info.Picture,
		CreatedAt: g.firstSeen(info.Id),
	}, nil
}

// Disconnect drops the in-memory token and removes the on-disk caches.
func (g *Google) Disconnect() error {
	g.mu.Lock()
	g.token = nil
	g.mu.Unlock()

	if err := os.Remove(g.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("identity: remove cached token: %w", err)
	}
	if err := os.Remove(g.profilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("identity: remove cached profile: %w", err)
	}

	g.logger.Info("user disconnected")
	return nil
}

// firstSeen returns the persisted first-fetch time for the account,
// recording the current time when the account is new.
func (g *Google) firstSeen(id string) time.Time {
	if data, err := os.ReadFile(g.profilePath); err == nil {
		var rec firstSeenRecord
		if err := json.Unmarshal(data, &rec); err == nil && rec.ID == id {
			return rec.FirstSeen
		}
	}

	rec := firstSeenRecord{ID: id, FirstSeen: time.Now().UTC()}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err == nil {
		if err := os.MkdirAll(filepath.Dir(g.profilePath), 0700); err == nil {
			if err := os.WriteFile(g.profilePath, data, 0600); err != nil {
				g.logger.Warn("could not record first-seen time", "error", err)
			}
		}
	}

	return rec.FirstSeen
}

// saveToken writes the current token to the cache file.
func (g *Google) saveToken() error {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == nil {
		return fmt.Errorf("identity: no token to save")
	}

	if err := os.MkdirAll(filepath.Dir(g.tokenPath), 0700); err != nil {
		return fmt.Errorf("identity: create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: marshal token: %w", err)
	}

	if err := os.WriteFile(g.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("identity: write token file: %w", err)
	}

	return nil
}

// loadToken restores a token from the cache file.
func (g *Google) loadToken() error {
	data, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("identity: parse token file: %w", err)
	}

	g.mu.Lock()
	g.token = &token
	g.mu.Unlock()

	return nil
}

// Ensure Google implements Provider.
var _ Provider = (*Google)(nil)
