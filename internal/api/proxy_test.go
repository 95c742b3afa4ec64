// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewhq/gateway/internal/api"
	"github.com/crewhq/gateway/internal/gateway"
	"github.com/crewhq/gateway/internal/platform/constants"
	"github.com/crewhq/gateway/internal/platform/middleware"
	"github.com/crewhq/gateway/internal/session"
)

// proxyFixture wires the session middleware, the gate, and the proxy handler
// over a scripted upstream, mirroring the production route.
type proxyFixture struct {
	router   http.Handler
	upstream *scriptedBackend
}

// scriptedBackend answers by query fragment and counts data calls.
type scriptedBackend struct {
	responses map[string]string
}

func (b *scriptedBackend) handler() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(request.Body).Decode(&body)

		writer.Header().Set("Content-Type", "application/json")
		for fragment, response := range b.responses {
			if strings.Contains(body.Query, fragment) {
				_, _ = writer.Write([]byte(response))
				return
			}
		}
		_, _ = writer.Write([]byte(`{"errors":[{"message":"Unknown operation"}]}`))
	}
}

func newProxyFixture(t *testing.T, responses map[string]string) *proxyFixture {
	t.Helper()

	backend := &scriptedBackend{responses: responses}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	client := gateway.NewClient(server.URL, 5*time.Second, slog.Default())
	resolver := session.NewResolver(client, slog.Default())

	router := chi.NewRouter()
	router.Use(middleware.Session(resolver, false))
	router.Group(func(gated chi.Router) {
		gated.Use(middleware.RequireSession)
		gated.Post("/graphql", api.NewProxyHandler(client).Forward)
	})

	return &proxyFixture{router: router, upstream: backend}
}

func sessionToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "accountId": "acct-1", "roles": []string{"owner"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

/*
TestProxy_RequiresSession verifies an anonymous request is stopped at the
gate with SESSION_EXPIRED, before any document reaches the upstream.
*/
func TestProxy_RequiresSession(t *testing.T) {
	fixture := newProxyFixture(t, nil)

	request := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"query { jobs { id } }"}`))
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "SESSION_EXPIRED")
}

/*
TestProxy_ForwardsDocument verifies the authenticated path: the posted
document reaches the upstream with the caller's bearer token and the data
block comes back inside the standard envelope.
*/
func TestProxy_ForwardsDocument(t *testing.T) {
	fixture := newProxyFixture(t, map[string]string{
		"validateToken": `{"data":{"validateToken":{"valid":true,"user":{"id":"user-1","accountId":"acct-1","roles":["owner"],"permissions":["jobs:read"]}}}}`,
		"jobs":          `{"data":{"jobs":[{"id":"job-1","status":"scheduled"}]}}`,
	})

	request := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"query { jobs { id status } }"}`))
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: sessionToken(t)})

	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"jobs":[{"id":"job-1","status":"scheduled"}]}}`, recorder.Body.String())
}

/*
TestProxy_BusinessErrorMapsToUnprocessable verifies upstream rejections of a
forwarded document surface their messages with a 422.
*/
func TestProxy_BusinessErrorMapsToUnprocessable(t *testing.T) {
	fixture := newProxyFixture(t, map[string]string{
		"validateToken": `{"data":{"validateToken":{"valid":true,"user":{"id":"user-1","accountId":"acct-1","roles":["owner"],"permissions":[]}}}}`,
		"archiveJob":    `{"errors":[{"message":"Job is already archived"}]}`,
	})

	request := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"mutation { archiveJob(id: \"job-1\") { id } }"}`))
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: sessionToken(t)})

	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Job is already archived")
}

/*
TestProxy_MissingQueryRejected verifies an empty document never leaves the
gateway.
*/
func TestProxy_MissingQueryRejected(t *testing.T) {
	fixture := newProxyFixture(t, map[string]string{
		"validateToken": `{"data":{"validateToken":{"valid":true,"user":{"id":"user-1","accountId":"acct-1","roles":["owner"],"permissions":[]}}}}`,
	})

	request := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"variables":{}}`))
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: sessionToken(t)})

	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "VALIDATION_ERROR")
}

/*
TestProxy_BearerHeaderWins verifies the Authorization header takes priority
over the access token cookie for session resolution.
*/
func TestProxy_BearerHeaderWins(t *testing.T) {
	fixture := newProxyFixture(t, map[string]string{
		"validateToken": `{"data":{"validateToken":{"valid":true,"user":{"id":"user-1","accountId":"acct-1","roles":["owner"],"permissions":[]}}}}`,
		"jobs":          `{"data":{"jobs":[]}}`,
	})

	request := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"query { jobs { id } }"}`))
	request.Header.Set("Authorization", "Bearer "+sessionToken(t))
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "not-a-decodable-token"})

	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHealth_Liveness verifies /health always answers ok.
*/
func TestHealth_Liveness(t *testing.T) {
	liveness, _ := api.NewHealthHandlers(api.HealthDependencies{}, slog.Default())

	recorder := httptest.NewRecorder()
	liveness(recorder, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"ok"`)
}

/*
TestHealth_ReadinessDegraded verifies a failing dependency flips /ready to
503 with the failing check named.
*/
func TestHealth_ReadinessDegraded(t *testing.T) {
	_, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckUpstream: func() error { return nil },
		CheckCache:    func() error { return assert.AnError },
	}, slog.Default())

	recorder := httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "degraded")
	assert.Contains(t, recorder.Body.String(), "redis")
}
