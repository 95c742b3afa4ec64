// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package session

import (
	"context"
	"sync"

	"github.com/crewhq/gateway/internal/credstore"
)

// Lazy memoizes one session resolution per inbound request.
//
// The middleware creates one Lazy per request and threads it through the
// request context. However many handlers, gates, or log decorators ask for
// the session, the resolution sequence — and therefore the upstream
// token-validation call — runs at most once. A new request always gets a new
// Lazy, so no session value crosses a request boundary.
type Lazy struct {
	once     sync.Once
	resolver *Resolver
	creds    credstore.Store
	token    string

	resolved *Session
}

// NewLazy wraps one pending resolution for the given caller and token.
func NewLazy(resolver *Resolver, creds credstore.Store, accessToken string) *Lazy {
	return &Lazy{
		resolver: resolver,
		creds:    creds,
		token:    accessToken,
	}
}

// Session resolves on first call and returns the identical value afterwards.
// Returns nil when the token yields no identity.
func (l *Lazy) Session(ctx context.Context) *Session {
	l.once.Do(func() {
		l.resolved = l.resolver.Resolve(ctx, l.creds, l.token)
	})
	return l.resolved
}
