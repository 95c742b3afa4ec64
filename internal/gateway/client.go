// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

/*
Package gateway executes authenticated GraphQL calls against the upstream
business backend with transparent, exactly-once token refresh.

It is the single seam between the dashboard gateway and the backend: every
remote operation (login, session enrichment, and the dashboard's own CRUD
documents) flows through [Client.Call].

Refresh discipline:

  - A response is classified unauthenticated on transport 401 or any
    structured error with code UNAUTHENTICATED.
  - At most one refresh and one retried call happen per failed call. The
    retried call's outcome is returned as-is, even if it fails again.
  - Concurrent callers holding the same refresh token share one in-flight
    refresh via singleflight, so a burst of expired-token requests produces
    exactly one upstream refresh.
  - A terminal failure that was not preceded by a successful refresh clears
    the caller's credential store: tokens confirmed dead must not be retried
    indefinitely.
*/
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/platform/constants"
)

// Client issues request/response exchanges against one upstream endpoint.
//
// Client itself is stateless with respect to callers: the per-caller
// credential pair is read from and written to the [credstore.Store] passed to
// each call. It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger

	// refreshGroup de-duplicates concurrent refreshes per refresh token.
	refreshGroup singleflight.Group
}

// NewClient creates an executor for the given upstream GraphQL endpoint.
func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// # Call Options

type callOptions struct {
	accessTokenOverride string
}

// CallOption customizes a single call.
type CallOption func(*callOptions)

// WithAccessToken forces the call to use the given access token instead of
// the credential store's current one. Used by the session resolver, which
// validates a specific token.
func WithAccessToken(token string) CallOption {
	return func(o *callOptions) { o.accessTokenOverride = token }
}

// # Execution

// envelope is the upstream response wire shape.
type envelope struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []UpstreamError `json:"errors,omitempty"`
}

// Call executes document with variables against the upstream, attaching the
// caller's bearer token, and returns the raw data block.
//
// On an unauthenticated response it performs the single refresh-and-retry
// described in the package documentation, persisting a successful refresh to
// creds. Irrecoverable failures return a [*RequestError].
func (c *Client) Call(ctx context.Context, creds credstore.Store, document string, variables map[string]any, opts ...CallOption) (json.RawMessage, error) {
	options := callOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	// Token priority: explicit override, else the store's current token.
	token := options.accessTokenOverride
	if token == "" && creds != nil {
		token = creds.AccessToken()
	}

	return c.call(ctx, creds, document, variables, token, false)
}

// call is the single-attempt core. retried marks the refresh-driven re-issue:
// it blocks a second refresh and keeps the failure path from clearing tokens
// that a successful refresh just minted.
func (c *Client) call(ctx context.Context, creds credstore.Store, document string, variables map[string]any, token string, retried bool) (json.RawMessage, error) {
	status, response, err := c.post(ctx, document, variables, token)
	if err != nil {
		// Network-level failure. The tokens were never judged by the
		// upstream, so the store is left untouched.
		return nil, &RequestError{cause: err}
	}

	// ── Refresh-and-retry (exactly once) ──────────────────────────────────
	if unauthenticated(status, response.Errors) && !retried && creds != nil {
		if refreshToken := creds.RefreshToken(); refreshToken != "" {
			if pair := c.refresh(ctx, refreshToken); pair != nil {
				creds.SetTokens(*pair)
				c.log.DebugContext(ctx, "gateway_token_refreshed")

				// Return the retried call's result regardless of outcome.
				return c.call(ctx, creds, document, variables, pair.AccessToken, true)
			}
		}
		// No refresh token, or refresh unavailable: fall through to the
		// original failure path.
	}

	// ── Failure path ──────────────────────────────────────────────────────
	if len(response.Errors) > 0 {
		if !retried && creds != nil {
			// Tokens confirmed dead by the upstream. Clear them so the
			// caller is forced back to login instead of retrying forever.
			creds.Clear()
		}
		return nil, &RequestError{Status: status, Errors: response.Errors}
	}

	if status < 200 || status >= 300 {
		return nil, &RequestError{Status: status}
	}

	if len(response.Data) == 0 || string(response.Data) == "null" {
		return nil, &RequestError{Status: status, cause: ErrEmptyResponse}
	}

	return response.Data, nil
}

// refresh exchanges refreshToken for a new pair, de-duplicated per token:
// concurrent callers that observed the same expired pair await one upstream
// refresh instead of each issuing their own. Returns nil when the refresh is
// unavailable for any reason.
func (c *Client) refresh(ctx context.Context, refreshToken string) *credstore.TokenPair {
	value, err, _ := c.refreshGroup.Do(refreshToken, func() (any, error) {
		pair := c.exchangeRefreshToken(ctx, refreshToken)
		if pair == nil {
			return nil, fmt.Errorf("gateway: refresh unavailable")
		}
		return pair, nil
	})
	if err != nil {
		return nil
	}
	return value.(*credstore.TokenPair)
}

// post performs one HTTP exchange and leniently decodes the envelope.
//
// A body that fails to decode under a 2xx status is reported as an empty
// envelope; the caller then raises the malformed-response error. Non-2xx
// bodies that fail to decode are tolerated — the status alone drives
// classification (a bare 401 carries no structured errors).
func (c *Client) post(ctx context.Context, document string, variables map[string]any, token string) (int, envelope, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     document,
		"variables": variables,
	})
	if err != nil {
		return 0, envelope{}, fmt.Errorf("gateway: encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, envelope{}, fmt.Errorf("gateway: build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("gateway: execute request: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, envelope{}, fmt.Errorf("gateway: read response: %w", err)
	}

	var decoded envelope
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Undecodable body: classification falls back to the status code.
		return response.StatusCode, envelope{}, nil
	}

	return response.StatusCode, decoded, nil
}
