// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/crewhq/gateway/internal/credstore"
	"github.com/crewhq/gateway/internal/platform/ctxkey"
	"github.com/crewhq/gateway/internal/session"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Credentials

// WithCredentials returns a new context with the caller's credential store attached.
func WithCredentials(ctx context.Context, store credstore.Store) context.Context {
	return context.WithValue(ctx, ctxkey.KeyCredentials, store)
}

// GetCredentials retrieves the caller's credential store, or nil for
// requests that never passed through the session middleware.
func GetCredentials(ctx context.Context) credstore.Store {
	store, ok := ctx.Value(ctxkey.KeyCredentials).(credstore.Store)
	if !ok {
		return nil
	}
	return store
}

// # Identity & Access

// WithLazySession returns a new context with the request-scoped session holder attached.
func WithLazySession(ctx context.Context, lazy *session.Lazy) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, lazy)
}

// GetSession resolves and returns the caller's session, memoized for the
// lifetime of the request. Returns nil for anonymous or sessionless requests.
func GetSession(ctx context.Context) *session.Session {
	lazy, ok := ctx.Value(ctxkey.KeySession).(*session.Lazy)
	if !ok {
		return nil
	}
	return lazy.Session(ctx)
}
