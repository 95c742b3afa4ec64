// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package loginlimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter's time seam without sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLimiter(policy Policy) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(policy)
	limiter.now = clock.now
	return limiter, clock
}

/*
TestMemoryLimiter_LockoutAfterBudget verifies that exactly MaxAttempts
failures lock the origin and that the attempt before the last one still
passes.
*/
func TestMemoryLimiter_LockoutAfterBudget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
		assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed, "attempt %d should still be allowed", i+2)
	}

	limiter.RecordFailure(ctx, "10.0.0.1")

	verdict := limiter.Check(ctx, "10.0.0.1")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, 15, verdict.RetryAfterMinutes)
}

/*
TestMemoryLimiter_RollingWindow verifies the window re-anchors on each
failure: a failure at minute 14 extends the lockout rather than letting the
original window expire.
*/
func TestMemoryLimiter_RollingWindow(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}
	require.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	// 14 minutes in, the lockout still holds with 1 minute remaining.
	clock.advance(14 * time.Minute)
	verdict := limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 1, verdict.RetryAfterMinutes)

	// A fresh failure re-anchors the window back to the full 15 minutes.
	limiter.RecordFailure(ctx, "10.0.0.1")
	verdict = limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 15, verdict.RetryAfterMinutes)
}

/*
TestMemoryLimiter_WindowElapse verifies that a locked origin is allowed again
once the full window passes with no further failures, and that the stale
record is discarded.
*/
func TestMemoryLimiter_WindowElapse(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}
	require.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	clock.advance(DefaultLockoutWindow + time.Second)
	assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	// The streak restarted: one new failure is far from a lockout.
	limiter.RecordFailure(ctx, "10.0.0.1")
	assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)
}

/*
TestMemoryLimiter_SuccessClears verifies a successful login wipes the origin's
failure record entirely.
*/
func TestMemoryLimiter_SuccessClears(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}

	limiter.RecordSuccess(ctx, "10.0.0.1")

	// The budget is fully restored, not resumed at four.
	limiter.RecordFailure(ctx, "10.0.0.1")
	assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)
}

/*
TestMemoryLimiter_KeysAreIndependent verifies one origin's lockout never
affects another.
*/
func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}

	assert.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)
	assert.True(t, limiter.Check(ctx, "10.0.0.2").Allowed)
}

/*
TestMemoryLimiter_RetryAfterRoundsUp verifies sub-minute remainders report a
full minute, never zero.
*/
func TestMemoryLimiter_RetryAfterRoundsUp(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(Policy{})

	for i := 0; i < DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}

	clock.advance(14*time.Minute + 30*time.Second)
	verdict := limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 1, verdict.RetryAfterMinutes)
}

/*
TestMemoryLimiter_CustomPolicy verifies policy overrides take effect and the
zero value falls back to the defaults.
*/
func TestMemoryLimiter_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(Policy{MaxAttempts: 2, LockoutWindow: 5 * time.Minute})

	limiter.RecordFailure(ctx, "10.0.0.1")
	require.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	limiter.RecordFailure(ctx, "10.0.0.1")
	verdict := limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 5, verdict.RetryAfterMinutes)

	defaulted := NewMemoryLimiter(Policy{})
	assert.Equal(t, DefaultMaxAttempts, defaulted.policy.MaxAttempts)
	assert.Equal(t, DefaultLockoutWindow, defaulted.policy.LockoutWindow)
}
