// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

/*
Package session derives an authenticated identity from a bearer token.

A Session (identity + account + roles + permissions) is never persisted: it is
recomputed from the access token on every inbound request and memoized only
for that request's lifetime. A stale Session cannot outlive the request that
produced it.

Resolution runs an ordered strategy chain — local token decode (optionally
enriched by the upstream), then a fallback identity query — with the first
strategy to produce an identity winning.
*/
package session

// Session is the resolved identity for one inbound request.
type Session struct {
	// UserID is the subject identifier from the token or upstream record.
	UserID string `json:"userId"`

	// AccountID scopes the session to one tenant account.
	AccountID string `json:"accountId"`

	// Roles are case-normalized against the closed role set.
	Roles []Role `json:"roles"`

	// Permissions are capability strings ("jobs:write"). Non-empty whenever
	// Roles contains owner, even if upstream enrichment failed.
	Permissions []string `json:"permissions"`

	// AccessToken is the bearer token this session was derived from.
	AccessToken string `json:"-"`
}

// HasRole reports whether the session carries the given role.
func (s *Session) HasRole(role Role) bool {
	if s == nil {
		return false
	}
	for _, held := range s.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the session carries the given capability.
func (s *Session) HasPermission(permission string) bool {
	if s == nil {
		return false
	}
	for _, held := range s.Permissions {
		if held == permission {
			return true
		}
	}
	return false
}

// IsOwner reports whether the session holds the highest-privilege role.
func (s *Session) IsOwner() bool {
	return s.HasRole(RoleOwner)
}
