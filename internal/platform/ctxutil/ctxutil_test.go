// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/platform/ctxutil"
	"github.com/crewhq/gateway/internal/session"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Credentials verifies the caller's credential store round-trips
through the context.
*/
func TestContext_Credentials(t *testing.T) {
	ctx := context.Background()

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetCredentials(ctx))

	// 2. Inject and retrieve
	store := credstore.NewMemoryStoreWith(credstore.TokenPair{AccessToken: "access-v1"})
	ctx = ctxutil.WithCredentials(ctx, store)

	retrieved := ctxutil.GetCredentials(ctx)
	require.NotNil(t, retrieved)
	assert.Equal(t, "access-v1", retrieved.AccessToken())
}

// staticStrategy returns a fixed session for every token.
type staticStrategy struct {
	session *session.Session
}

func (s staticStrategy) Name() string { return "static" }

func (s staticStrategy) Resolve(context.Context, credstore.Store, string) (*session.Session, error) {
	return s.session, nil
}

/*
TestContext_Session verifies session resolution through the context: absent
holder yields nil, a present holder resolves through its chain.
*/
func TestContext_Session(t *testing.T) {
	ctx := context.Background()

	// 1. No holder attached: anonymous
	assert.Nil(t, ctxutil.GetSession(ctx))

	// 2. Attach a holder and resolve
	expected := &session.Session{UserID: "user-1", AccountID: "acct-1"}
	resolver := session.NewResolverWithStrategies(slog.Default(), staticStrategy{session: expected})
	ctx = ctxutil.WithLazySession(ctx, session.NewLazy(resolver, nil, "token"))

	resolved := ctxutil.GetSession(ctx)
	require.NotNil(t, resolved)
	assert.Equal(t, "user-1", resolved.UserID)

	// 3. Memoized: the same pointer comes back
	assert.Same(t, resolved, ctxutil.GetSession(ctx))
}
