// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package loginlimit

import (
	"context"
	"sync"
	"time"
)

// attemptRecord tracks consecutive failures for one origin. Created on first
// failure, deleted on success or when the lockout window elapses.
type attemptRecord struct {
	failureCount  int
	lastFailureAt time.Time
}

// MemoryLimiter is a process-local [Limiter].
//
// State does not survive a restart: a redeploy silently resets all lockouts.
// That is a documented limitation of the in-memory mode, not a bug — use
// [RedisLimiter] when lockouts must span processes.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	policy  Policy

	// now is a test seam; production always uses time.Now.
	now func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter with the given policy.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*attemptRecord),
		policy:  policy.withDefaults(),
		now:     time.Now,
	}
}

// Check reports whether an attempt from key may proceed.
func (l *MemoryLimiter) Check(_ context.Context, key string) Verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, found := l.records[key]
	if !found {
		return Verdict{Allowed: true}
	}

	elapsed := l.now().Sub(record.lastFailureAt)

	// The window is a rolling reset anchored to the last failure.
	if elapsed > l.policy.LockoutWindow {
		delete(l.records, key)
		return Verdict{Allowed: true}
	}

	if record.failureCount >= l.policy.MaxAttempts {
		return Verdict{
			Allowed:           false,
			RetryAfterMinutes: remainingMinutes(l.policy.LockoutWindow - elapsed),
		}
	}

	return Verdict{Allowed: true}
}

// RecordFailure increments the failure count for key and re-anchors the window.
func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	currentTime := l.now()

	record, found := l.records[key]
	if !found || currentTime.Sub(record.lastFailureAt) > l.policy.LockoutWindow {
		// First failure, or the previous streak's window already elapsed:
		// start a fresh record at count 1.
		l.records[key] = &attemptRecord{failureCount: 1, lastFailureAt: currentTime}
		return
	}

	record.failureCount++
	record.lastFailureAt = currentTime
}

// RecordSuccess clears any failure record for key.
func (l *MemoryLimiter) RecordSuccess(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, key)
}
