// Package backend is the client for the SignStream persistence API. It
// forwards the externally-sourced user profile on first load and runs
// job searches on the user's behalf.
//
// Failed requests are not retried. Upstream failures surface
// immediately and recovery is user-initiated.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/signstream/go-signstream/internal/httpc"
	"github.com/signstream/go-signstream/pkg/identity"
)

// Client talks to the backend persistence API. Every request carries a
// bearer token from the identity provider.
type Client struct {
	baseURL  string
	provider identity.Provider
	http     *http.Client
	logger   *slog.Logger
}

// New creates a backend client.
func New(provider identity.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		provider: provider,
		http:     httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", "backend.client"),
	}, nil
}

// UpsertProfile pushes the user profile to the backend, keyed by the
// external identity id.
func (c *Client) UpsertProfile(ctx context.Context, profile *identity.Profile) error {
	if profile == nil || profile.ID == "" {
		return fmt.Errorf("backend: profile with an id is required")
	}

	resp, err := c.post(ctx, "/api/users/sync", profile)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	c.logger.Debug("profile synced", "user_id", profile.ID)
	return nil
}

// SearchJobs runs a job search and returns the matching postings.
func (c *Client) SearchJobs(ctx context.Context, query JobQuery) ([]JobPosting, error) {
	resp, err := c.post(ctx, "/api/jobs/search", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var jobs []JobPosting
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("backend: decode job list: %w", err)
	}

	c.logger.Debug("job search completed", "results", len(jobs))
	return jobs, nil
}

// post sends an authenticated JSON request.
func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	token, err := c.provider.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("backend: fetch bearer token: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("backend: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

// checkStatus maps non-2xx responses onto the error taxonomy: 5xx is
// upstream unavailability, 4xx carries the backend's own message.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	message := strings.TrimSpace(string(body))
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			message = errResp.Message
		} else if errResp.Error != "" {
			message = errResp.Error
		}
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}
