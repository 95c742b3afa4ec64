// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// It is used to store and retrieve per-request values (credentials, lazily
// resolved session, request ID, logger). Using a private, unexported type for
// keys prevents collisions with third-party packages that might also use
// context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
//
// # Collision Prevention
//
// Even if another package uses "request_id" as a string key, it will not
// collide with this key type because Go's [context.Context] uses both the
// value AND the type for lookups.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyCredentials is the context key for the per-caller credential store.
	KeyCredentials key = "credentials"

	// KeySession is the context key for the request-scoped lazy session holder.
	KeySession key = "session"
)
