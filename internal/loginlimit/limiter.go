// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

/*
Package loginlimit throttles credential-guessing attempts per client origin.

It tracks failed-login counts keyed by origin and denies further attempts once
the budget is exhausted, until a rolling lockout window (anchored to the *last*
failure, not the first) elapses.

Architecture:

  - Limiter: The storage-agnostic contract consumed by the auth service.
  - MemoryLimiter: Process-local map, the single-process reference semantics.
  - RedisLimiter: Shared counters with per-key TTL, so lockouts survive
    redeploys and span replicas.

Failure semantics: this component never returns errors. Storage outages fail
open with a warning log — an unreachable Redis must not lock every user out of
the dashboard.
*/
package loginlimit

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// # Policy

const (
	// DefaultMaxAttempts is the failed-attempt budget per origin.
	DefaultMaxAttempts = 5

	// DefaultLockoutWindow is the rolling lockout duration. Each recorded
	// failure re-anchors the window.
	DefaultLockoutWindow = 15 * time.Minute
)

// Policy tunes a limiter. The zero value is replaced with the defaults.
type Policy struct {
	MaxAttempts   int
	LockoutWindow time.Duration
}

// withDefaults fills unset policy fields.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.LockoutWindow <= 0 {
		p.LockoutWindow = DefaultLockoutWindow
	}
	return p
}

// # Contract

// Verdict is the outcome of a lockout check.
type Verdict struct {
	// Allowed reports whether a login attempt may proceed.
	Allowed bool

	// RetryAfterMinutes is the remaining lockout, rounded up to whole
	// minutes. Zero when Allowed is true.
	RetryAfterMinutes int
}

// Limiter gates login attempts independent of all other components.
type Limiter interface {
	// Check reports whether an attempt from key may proceed.
	Check(ctx context.Context, key string) Verdict

	// RecordFailure increments the failure count for key and re-anchors the
	// lockout window to now.
	RecordFailure(ctx context.Context, key string)

	// RecordSuccess clears any failure record for key.
	RecordSuccess(ctx context.Context, key string)
}

// # Key Derivation

// unknownClientKey is shared by all otherwise-unidentifiable callers. Every
// such caller therefore shares one lockout budget — an acknowledged weakness
// of header-based origin identification behind misconfigured proxies.
const unknownClientKey = "unknown"

// ClientKey derives the lockout key for an inbound request: the leftmost
// address in X-Forwarded-For, else X-Real-IP, else the shared sentinel.
func ClientKey(request *http.Request) string {
	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if ip := request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	return unknownClientKey
}

// remainingMinutes converts a remaining lockout duration to whole minutes,
// rounding up so an active lockout always reports at least one minute.
func remainingMinutes(remaining time.Duration) int {
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
