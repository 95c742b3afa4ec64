// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crewhq/gateway/internal/credstore"
)

// refreshTokensMutation exchanges a refresh token for a new token pair. It is
// the one unauthenticated-except-for-refresh-token operation in the system.
const refreshTokensMutation = `
mutation RefreshTokens($refreshToken: String!) {
  refreshTokens(refreshToken: $refreshToken) {
    accessToken
    refreshToken
    expiresIn
  }
}`

// TokenPayload is the upstream wire shape of an issued token pair.
type TokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Pair converts the wire shape into a credential pair.
func (p TokenPayload) Pair() credstore.TokenPair {
	return credstore.TokenPair{
		AccessToken:    p.AccessToken,
		RefreshToken:   p.RefreshToken,
		AccessTokenTTL: time.Duration(p.ExpiresIn) * time.Second,
	}
}

// exchangeRefreshToken issues the refresh call directly, outside the
// retry machinery — this procedure is what that machinery invokes, and
// routing it through [Client.call] would recurse.
//
// It returns nil (never an error) on any transport failure, non-2xx status,
// or structured error list; the caller treats nil as "refresh unavailable".
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) *credstore.TokenPair {
	payload, err := json.Marshal(map[string]any{
		"query": refreshTokensMutation,
		"variables": map[string]any{
			"refreshToken": refreshToken,
		},
	})
	if err != nil {
		return nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.log.DebugContext(ctx, "gateway_refresh_transport_failure", slog.Any("error", err))
		return nil
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		c.log.DebugContext(ctx, "gateway_refresh_rejected", slog.Int("status", response.StatusCode))
		return nil
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil
	}

	var decoded struct {
		Data struct {
			RefreshTokens *TokenPayload `json:"refreshTokens"`
		} `json:"data"`
		Errors []UpstreamError `json:"errors"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}

	if len(decoded.Errors) > 0 || decoded.Data.RefreshTokens == nil {
		c.log.DebugContext(ctx, "gateway_refresh_rejected", slog.Int("upstream_errors", len(decoded.Errors)))
		return nil
	}

	if decoded.Data.RefreshTokens.AccessToken == "" || decoded.Data.RefreshTokens.RefreshToken == "" {
		return nil
	}

	pair := decoded.Data.RefreshTokens.Pair()
	return &pair
}
