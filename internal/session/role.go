// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package session

import "strings"

// # Roles

// Role is the authorization level granted to a dashboard account.
//
// The set is closed: any role arriving from a decoded token claim or an
// upstream field is case-normalized and checked against it at ingestion.
type Role string

const (
	// Full control of the account, including billing and member management
	RoleOwner Role = "owner"

	// Everything except ownership transfer and billing
	RoleAdmin Role = "admin"

	// Day-to-day running of clients, jobs, and workers
	RoleManager Role = "manager"

	// Assigns jobs to field workers and tracks their progress
	RoleDispatcher Role = "dispatcher"

	// Field staff; sees and updates only their own assignments
	RoleWorker Role = "worker"

	// Payments, invoicing, and financial reports
	RoleFinance Role = "finance"

	// Read-only access to the dashboard
	RoleViewer Role = "viewer"
)

// knownRoles is the closed enumeration used by [NormalizeRole].
var knownRoles = map[Role]struct{}{
	RoleOwner:      {},
	RoleAdmin:      {},
	RoleManager:    {},
	RoleDispatcher: {},
	RoleWorker:     {},
	RoleFinance:    {},
	RoleViewer:     {},
}

// NormalizeRole lowercases a raw role value and validates it against the
// closed set. Unknown values return ("", false) and are dropped by callers.
func NormalizeRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, known := knownRoles[role]
	return role, known
}

// NormalizeRoles maps a raw role list through [NormalizeRole], silently
// discarding unknown entries.
func NormalizeRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, value := range raw {
		if role, known := NormalizeRole(value); known {
			roles = append(roles, role)
		}
	}
	return roles
}

// # Permissions

// OwnerPermissions is the fixed default permission set covering every
// dashboard capability. It is assigned whenever a decoded token claims the
// owner role, so an owner is never left with an empty permission set even
// when backend enrichment is unavailable.
var OwnerPermissions = []string{
	"clients:read", "clients:write",
	"jobs:read", "jobs:write",
	"payments:read", "payments:write",
	"workers:read", "workers:write",
	"reports:read",
	"settings:write",
}
