// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewhq/gateway/internal/session"
)

/*
TestNormalizeRole verifies case normalization against the closed role set.
*/
func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected session.Role
		known    bool
	}{
		{"lowercase", "owner", session.RoleOwner, true},
		{"uppercase", "OWNER", session.RoleOwner, true},
		{"mixed_case", "DisPatcher", session.RoleDispatcher, true},
		{"padded", "  viewer  ", session.RoleViewer, true},
		{"unknown", "superuser", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, known := session.NormalizeRole(tt.raw)
			assert.Equal(t, tt.known, known)
			if tt.known {
				assert.Equal(t, tt.expected, role)
			}
		})
	}
}

/*
TestNormalizeRoles verifies unknown entries are dropped, not errored.
*/
func TestNormalizeRoles(t *testing.T) {
	roles := session.NormalizeRoles([]string{"ADMIN", "superuser", "worker", ""})
	assert.Equal(t, []session.Role{session.RoleAdmin, session.RoleWorker}, roles)

	assert.Empty(t, session.NormalizeRoles(nil))
}

/*
TestSession_NilSafety verifies the accessor methods treat a nil session as an
anonymous caller with no grants.
*/
func TestSession_NilSafety(t *testing.T) {
	var anonymous *session.Session

	assert.False(t, anonymous.HasRole(session.RoleOwner))
	assert.False(t, anonymous.HasPermission("jobs:read"))
	assert.False(t, anonymous.IsOwner())
}

/*
TestSession_Grants verifies role and permission membership checks.
*/
func TestSession_Grants(t *testing.T) {
	resolved := &session.Session{
		UserID:      "user-1",
		AccountID:   "acct-1",
		Roles:       []session.Role{session.RoleManager, session.RoleFinance},
		Permissions: []string{"payments:read", "jobs:read"},
	}

	assert.True(t, resolved.HasRole(session.RoleManager))
	assert.True(t, resolved.HasRole(session.RoleFinance))
	assert.False(t, resolved.HasRole(session.RoleOwner))
	assert.False(t, resolved.IsOwner())

	assert.True(t, resolved.HasPermission("payments:read"))
	assert.False(t, resolved.HasPermission("payments:write"))
}
