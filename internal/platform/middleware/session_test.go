// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package middleware_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/platform/ctxutil"
	"github.com/crewhq/gateway/internal/platform/middleware"
	"github.com/crewhq/gateway/internal/session"
)

// fixedStrategy resolves every token to the same session (nil = anonymous).
type fixedStrategy struct {
	session *session.Session
}

func (s fixedStrategy) Name() string { return "fixed" }

func (s fixedStrategy) Resolve(context.Context, credstore.Store, string) (*session.Session, error) {
	return s.session, nil
}

func gateChain(resolved *session.Session, gate func(http.Handler) http.Handler) http.Handler {
	resolver := session.NewResolverWithStrategies(slog.Default(), fixedStrategy{session: resolved})

	final := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("reached"))
	})

	return middleware.Session(resolver, false)(gate(final))
}

func execute(handler http.Handler, withToken bool) *httptest.ResponseRecorder {
	request := httptest.NewRequest("GET", "/", nil)
	if withToken {
		request.Header.Set("Authorization", "Bearer some-token")
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestRequireSession verifies the gate admits resolved sessions and rejects
anonymous callers with SESSION_EXPIRED.
*/
func TestRequireSession(t *testing.T) {
	member := &session.Session{UserID: "user-1", AccountID: "acct-1"}

	recorder := execute(gateChain(member, middleware.RequireSession), true)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = execute(gateChain(nil, middleware.RequireSession), true)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "SESSION_EXPIRED")

	// No token at all never invokes the chain either.
	recorder = execute(gateChain(member, middleware.RequireSession), false)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestRequireRole verifies role gating and its implied session requirement.
*/
func TestRequireRole(t *testing.T) {
	dispatcher := &session.Session{
		UserID: "user-1", AccountID: "acct-1",
		Roles: []session.Role{session.RoleDispatcher},
	}

	recorder := execute(gateChain(dispatcher, middleware.RequireRole(session.RoleDispatcher)), true)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = execute(gateChain(dispatcher, middleware.RequireRole(session.RoleOwner)), true)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = execute(gateChain(nil, middleware.RequireRole(session.RoleOwner)), true)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestRequirePermission verifies capability gating and its implied session
requirement.
*/
func TestRequirePermission(t *testing.T) {
	finance := &session.Session{
		UserID: "user-1", AccountID: "acct-1",
		Roles:       []session.Role{session.RoleFinance},
		Permissions: []string{"payments:read"},
	}

	recorder := execute(gateChain(finance, middleware.RequirePermission("payments:read")), true)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = execute(gateChain(finance, middleware.RequirePermission("payments:write")), true)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = execute(gateChain(nil, middleware.RequirePermission("payments:read")), true)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestSessionMiddleware_InjectsCredentials verifies the middleware makes the
cookie-backed credential store reachable downstream.
*/
func TestSessionMiddleware_InjectsCredentials(t *testing.T) {
	resolver := session.NewResolverWithStrategies(slog.Default(), fixedStrategy{})

	var stored credstore.Store
	probe := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		stored = ctxutil.GetCredentials(request.Context())
		writer.WriteHeader(http.StatusOK)
	})

	handler := middleware.Session(resolver, false)(probe)
	execute(handler, false)

	assert.NotNil(t, stored)
}
