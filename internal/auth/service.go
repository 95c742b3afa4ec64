// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

/*
Package auth implements the login surface of the CrewHQ gateway.

It orchestrates the three collaborators of a credential exchange:

  - Limiter: throttles guessing attempts per client origin before any
    upstream traffic happens.
  - Gateway: performs the actual login/register/logout operations against
    the opaque business backend.
  - Credential store: persists the issued token pair for the caller.

The package never sees a password hash and never mints a token itself — the
upstream owns credential verification entirely.
*/
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/gateway"
	"github.com/crewhq/gateway/internal/loginlimit"
	"github.com/crewhq/gateway/internal/platform/apperr"
)

// # Upstream Operations

const loginMutation = `
mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password) {
    user {
      id
      email
      firstName
      lastName
      roles
    }
    tokens {
      accessToken
      refreshToken
      expiresIn
    }
  }
}`

const registerMutation = `
mutation Register($email: String!, $password: String!, $firstName: String, $lastName: String) {
  register(email: $email, password: $password, firstName: $firstName, lastName: $lastName) {
    user {
      id
      email
      firstName
      lastName
      roles
    }
    tokens {
      accessToken
      refreshToken
      expiresIn
    }
  }
}`

const logoutMutation = `
mutation Logout {
  logout {
    success
  }
}`

// # Contracts & Types

// Service implements the authentication use cases.
type Service struct {
	gateway *gateway.Client
	limiter loginlimit.Limiter
	log     *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(gatewayClient *gateway.Client, limiter loginlimit.Limiter, log *slog.Logger) *Service {
	return &Service{
		gateway: gatewayClient,
		limiter: limiter,
		log:     log,
	}
}

// UserProfile is the upstream's view of the authenticated user, echoed to
// the dashboard after login or registration.
type UserProfile struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Roles     []string `json:"roles"`
}

// credentialResult is the shared wire shape of login and register payloads.
type credentialResult struct {
	User   *UserProfile          `json:"user"`
	Tokens *gateway.TokenPayload `json:"tokens"`
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string

	// ClientKey is the rate-limiter key derived from the caller's origin.
	ClientKey string
}

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string

	ClientKey string
}

// # Authentication Flow

/*
Login validates the attempt against the lockout limiter, exchanges the
credentials upstream, and persists the issued token pair.

Failure accounting:
  - A locked-out origin is denied before any upstream traffic.
  - An upstream rejection counts as a limiter failure and surfaces the
    upstream's message verbatim.
  - An unreachable upstream is NOT counted — outage is not evidence of
    guessing.
*/
func (service *Service) Login(ctx context.Context, creds credstore.Store, input LoginInput) (*UserProfile, error) {
	if verdict := service.limiter.Check(ctx, input.ClientKey); !verdict.Allowed {
		return nil, apperr.RateLimited(verdict.RetryAfterMinutes)
	}

	// The login call is unauthenticated: no credential store is handed to
	// the executor, so no refresh or token clearing can trigger here.
	data, err := service.gateway.Call(ctx, nil, loginMutation, map[string]any{
		"email":    input.Email,
		"password": input.Password,
	})
	if err != nil {
		return nil, service.rejectLogin(ctx, input.ClientKey, err)
	}

	var decoded struct {
		Login credentialResult `json:"login"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil || decoded.Login.User == nil || decoded.Login.Tokens == nil {
		return nil, apperr.BadGateway("Authentication service returned an unusable response", err)
	}

	service.limiter.RecordSuccess(ctx, input.ClientKey)
	creds.SetTokens(decoded.Login.Tokens.Pair())

	return decoded.Login.User, nil
}

/*
Register enrolls a new account upstream and persists the issued token pair.

Registration shares the login lockout budget: a rejected registration counts
against the same origin key (both are credential-surface probes).
*/
func (service *Service) Register(ctx context.Context, creds credstore.Store, input RegisterInput) (*UserProfile, error) {
	if verdict := service.limiter.Check(ctx, input.ClientKey); !verdict.Allowed {
		return nil, apperr.RateLimited(verdict.RetryAfterMinutes)
	}

	variables := map[string]any{
		"email":    input.Email,
		"password": input.Password,
	}
	if input.FirstName != "" {
		variables["firstName"] = input.FirstName
	}
	if input.LastName != "" {
		variables["lastName"] = input.LastName
	}

	data, err := service.gateway.Call(ctx, nil, registerMutation, variables)
	if err != nil {
		return nil, service.rejectRegister(ctx, input.ClientKey, err)
	}

	var decoded struct {
		Register credentialResult `json:"register"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil || decoded.Register.User == nil || decoded.Register.Tokens == nil {
		return nil, apperr.BadGateway("Authentication service returned an unusable response", err)
	}

	service.limiter.RecordSuccess(ctx, input.ClientKey)
	creds.SetTokens(decoded.Register.Tokens.Pair())

	return decoded.Register.User, nil
}

/*
Logout terminates the caller's session.

The upstream logout is best-effort: a failure is logged and swallowed, and
local credential clearing proceeds regardless. Logout therefore always
reports success to the caller.
*/
func (service *Service) Logout(ctx context.Context, creds credstore.Store) {
	if creds.AccessToken() != "" {
		if _, err := service.gateway.Call(ctx, creds, logoutMutation, nil); err != nil {
			service.log.DebugContext(ctx, "upstream_logout_failed", slog.Any("error", err))
		}
	}

	creds.Clear()
}

// # Failure Mapping

// rejectLogin converts an upstream login failure into a client-facing error,
// recording a limiter failure only for genuine rejections.
func (service *Service) rejectLogin(ctx context.Context, clientKey string, err error) error {
	var requestErr *gateway.RequestError
	if errors.As(err, &requestErr) && len(requestErr.Errors) > 0 {
		service.limiter.RecordFailure(ctx, clientKey)
		// The upstream's message is surfaced verbatim ("Invalid email or
		// password", "Account suspended", ...).
		return apperr.Unauthorized(requestErr.Error())
	}

	return apperr.BadGateway("Unable to reach the authentication service", err)
}

// rejectRegister mirrors rejectLogin for the registration operation.
func (service *Service) rejectRegister(ctx context.Context, clientKey string, err error) error {
	var requestErr *gateway.RequestError
	if errors.As(err, &requestErr) && len(requestErr.Errors) > 0 {
		service.limiter.RecordFailure(ctx, clientKey)
		return apperr.Unprocessable(requestErr.Error())
	}

	return apperr.BadGateway("Unable to reach the authentication service", err)
}
