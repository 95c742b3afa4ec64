// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/gateway"
)

// # Strategy Chain

// Strategy is one way to derive a [Session] from an access token.
//
// Returning (nil, nil) means the strategy does not apply to this token and
// the chain falls through to the next one. Returning an error also falls
// through; the error is logged, never propagated.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, creds credstore.Store, accessToken string) (*Session, error)
}

// Resolver derives sessions by trying an ordered strategy list, first
// success wins. The chain order is part of the contract:
//
//  1. claims: local decode of the token's claims blob, enriched by the
//     upstream token-validation operation when it is reachable.
//  2. whoami: a minimal identity query, attempted only when the local decode
//     produced no usable subject/account pair.
type Resolver struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewResolver builds the production strategy chain over the given executor.
func NewResolver(client *gateway.Client, log *slog.Logger) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			&claimsStrategy{gateway: client, log: log},
			&whoamiStrategy{gateway: client},
		},
		log: log,
	}
}

// NewResolverWithStrategies builds a resolver with an explicit chain. Used by
// tests to probe fall-through behavior in isolation.
func NewResolverWithStrategies(log *slog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, log: log}
}

// Resolve walks the chain and returns the first session produced, or nil
// when no strategy yields an identity. It never returns an error: a request
// without a resolvable session is simply anonymous.
func (r *Resolver) Resolve(ctx context.Context, creds credstore.Store, accessToken string) *Session {
	if accessToken == "" {
		return nil
	}

	for _, strategy := range r.strategies {
		resolved, err := strategy.Resolve(ctx, creds, accessToken)
		if err != nil {
			r.log.DebugContext(ctx, "session_strategy_failed",
				slog.String("strategy", strategy.Name()),
				slog.Any("error", err),
			)
			continue
		}
		if resolved != nil {
			return resolved
		}
	}

	return nil
}

// # Strategy 1: Local Claims Decode (+ upstream enrichment)

// validateTokenQuery asks the upstream to validate a token and return the
// authoritative user record behind it.
const validateTokenQuery = `
query ValidateToken($token: String!) {
  validateToken(token: $token) {
    valid
    user {
      id
      accountId
      roles
      permissions
    }
  }
}`

// tokenClaims is the subset of the access token's claims blob the gateway
// cares about.
type tokenClaims struct {
	jwt.RegisteredClaims

	AccountID string   `json:"accountId"`
	Roles     []string `json:"roles"`
}

type claimsStrategy struct {
	gateway *gateway.Client
	log     *slog.Logger
}

func (s *claimsStrategy) Name() string { return "claims" }

// Resolve decodes the token's middle segment as a self-describing claims
// blob. No signature verification happens here: the token was minted and
// signed by the upstream, and the upstream re-verifies it on every call this
// gateway forwards.
//
// The decoded roles seed an optimistic session — owner gets the full default
// permission set before the upstream has confirmed anything. Enrichment, when
// reachable, replaces that seed entirely.
func (s *claimsStrategy) Resolve(ctx context.Context, creds credstore.Store, accessToken string) (*Session, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		// Not a decodable token. Fall through to the identity query.
		return nil, nil
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" || claims.AccountID == "" {
		// Claims blob lacks the minimum identity fields.
		return nil, nil
	}

	resolved := &Session{
		UserID:      subject,
		AccountID:   claims.AccountID,
		Roles:       NormalizeRoles(claims.Roles),
		Permissions: []string{},
		AccessToken: accessToken,
	}
	if resolved.IsOwner() {
		resolved.Permissions = OwnerPermissions
	}

	// Upstream enrichment is authoritative when it answers; the local decode
	// is only a lower-confidence seed. Any failure keeps the seed.
	if enriched := s.enrich(ctx, creds, resolved); enriched != nil {
		return enriched, nil
	}

	return resolved, nil
}

// enrich replaces the seed's roles and permissions with the upstream's
// answer. Returns nil (keeping the seed) on any failure.
func (s *claimsStrategy) enrich(ctx context.Context, creds credstore.Store, seed *Session) *Session {
	data, err := s.gateway.Call(ctx, creds, validateTokenQuery,
		map[string]any{"token": seed.AccessToken},
		gateway.WithAccessToken(seed.AccessToken),
	)
	if err != nil {
		s.log.DebugContext(ctx, "session_enrichment_unavailable", slog.Any("error", err))
		return nil
	}

	var decoded struct {
		ValidateToken struct {
			Valid bool `json:"valid"`
			User  *struct {
				ID          string   `json:"id"`
				AccountID   string   `json:"accountId"`
				Roles       []string `json:"roles"`
				Permissions []string `json:"permissions"`
			} `json:"user"`
		} `json:"validateToken"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}

	result := decoded.ValidateToken
	if !result.Valid || result.User == nil {
		return nil
	}

	permissions := result.User.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	return &Session{
		UserID:      result.User.ID,
		AccountID:   result.User.AccountID,
		Roles:       NormalizeRoles(result.User.Roles),
		Permissions: permissions,
		AccessToken: seed.AccessToken,
	}
}

// # Strategy 2: Fallback Identity Query

// currentUserQuery is the minimal "who am I" operation, used only when the
// token's claims blob could not be decoded into an identity.
const currentUserQuery = `
query CurrentUser {
  me {
    id
    accountId
    roles
  }
}`

type whoamiStrategy struct {
	gateway *gateway.Client
}

func (s *whoamiStrategy) Name() string { return "whoami" }

// Resolve asks the upstream who the bearer of accessToken is. Sessions built
// this way carry no permissions; privileged screens stay locked until the
// caller logs in again with a decodable token.
func (s *whoamiStrategy) Resolve(ctx context.Context, creds credstore.Store, accessToken string) (*Session, error) {
	data, err := s.gateway.Call(ctx, creds, currentUserQuery, nil,
		gateway.WithAccessToken(accessToken),
	)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Me *struct {
			ID        string   `json:"id"`
			AccountID string   `json:"accountId"`
			Roles     []string `json:"roles"`
		} `json:"me"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	if decoded.Me == nil || decoded.Me.ID == "" {
		return nil, nil
	}

	return &Session{
		UserID:      decoded.Me.ID,
		AccountID:   decoded.Me.AccountID,
		Roles:       NormalizeRoles(decoded.Me.Roles),
		Permissions: []string{},
		AccessToken: accessToken,
	}, nil
}
