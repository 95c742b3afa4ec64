// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

/*
Package credstore holds the bearer credential pair for the current caller.

It abstracts the persistence surface behind a small key-value-with-expiry
interface: the production implementation writes HTTP cookies on the inbound
response, while tests and non-HTTP callers use an in-memory store.

Invariants:

  - A refresh token is never stored without its access token: SetTokens
    overwrites both entries in one operation.
  - Writes are last-writer-wins. Two requests racing to refresh may both
    persist a valid pair; the second overwrites the first. The upstream
    tolerates refresh-token reuse within its rotation window, so this is an
    accepted resolution, not a bug to mutex away.
*/
package credstore

import "time"

// TokenPair is an access token, its refresh token, and the access token
// lifetime, issued together by login, registration, or refresh.
type TokenPair struct {
	// AccessToken is the short-lived bearer credential for upstream calls.
	AccessToken string

	// RefreshToken is exchanged for a new pair once the access token expires.
	// Its own validity window is a fixed multiple of AccessTokenTTL.
	RefreshToken string

	// AccessTokenTTL is the access token lifetime as reported by the upstream.
	AccessTokenTTL time.Duration
}

// Store is the per-caller credential persistence surface.
//
// Implementations are scoped to a single caller (one browser session in the
// cookie deployment) and are not safe for use across callers.
type Store interface {
	// AccessToken returns the current access token, or "" if none is stored.
	AccessToken() string

	// RefreshToken returns the current refresh token, or "" if none is stored.
	RefreshToken() string

	// SetTokens atomically replaces both credential entries.
	SetTokens(pair TokenPair)

	// Clear removes both credential entries.
	Clear()
}

// MemoryStore is an in-process [Store] used by tests and CLI callers.
type MemoryStore struct {
	pair TokenPair
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates an in-memory store pre-seeded with a pair.
func NewMemoryStoreWith(pair TokenPair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

// AccessToken returns the stored access token.
func (s *MemoryStore) AccessToken() string { return s.pair.AccessToken }

// RefreshToken returns the stored refresh token.
func (s *MemoryStore) RefreshToken() string { return s.pair.RefreshToken }

// SetTokens replaces the stored pair.
func (s *MemoryStore) SetTokens(pair TokenPair) { s.pair = pair }

// Clear drops the stored pair.
func (s *MemoryStore) Clear() { s.pair = TokenPair{} }
