// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package middleware

import (
	"net/http"
	"strings"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/platform/apperr"
	"github.com/crewhq/gateway/internal/platform/constants"
	"github.com/crewhq/gateway/internal/platform/ctxutil"
	"github.com/crewhq/gateway/internal/platform/respond"
	"github.com/crewhq/gateway/internal/session"
)

// Session attaches the caller's credential store and a lazily-resolved
// session to every request.
//
// # Flow
//
//  1. Build a cookie-backed credential store over the inbound exchange.
//  2. Pick the bearer token: 'Authorization: Bearer <token>' header first,
//     else the access token cookie.
//  3. Wrap one pending resolution in a [session.Lazy] and inject both into
//     the context.
//
// Resolution itself is deferred: anonymous endpoints never trigger it, and
// gated endpoints trigger it at most once per request regardless of how many
// components ask for the session.
func Session(resolver *session.Resolver, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			creds := credstore.NewCookieStore(writer, request, secureCookies)

			token := bearerToken(request)
			if token == "" {
				token = creds.AccessToken()
			}

			ctx := ctxutil.WithCredentials(request.Context(), creds)
			ctx = ctxutil.WithLazySession(ctx, session.NewLazy(resolver, creds, token))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Authorization Gate

// RequireSession blocks requests whose token resolves to no identity.
//
// The 401 carries the SESSION_EXPIRED code: the dashboard redirects to the
// login screen instead of rendering a raw error.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetSession(request.Context()) == nil {
			respond.Error(writer, request, apperr.SessionExpired())
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose session does not carry the given role.
// It implies [RequireSession].
func RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			resolved := ctxutil.GetSession(request.Context())

			if resolved == nil {
				respond.Error(writer, request, apperr.SessionExpired())
				return
			}

			if !resolved.HasRole(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient role"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequirePermission blocks requests whose session does not carry the given
// capability. It implies [RequireSession].
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			resolved := ctxutil.GetSession(request.Context())

			if resolved == nil {
				respond.Error(writer, request, apperr.SessionExpired())
				return
			}

			if !resolved.HasPermission(permission) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// bearerToken extracts the token from an 'Authorization: Bearer' header, or
// "" when the header is absent or malformed.
func bearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
