// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package loginlimit_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewhq/gateway/internal/loginlimit"
)

func newRedisLimiter(t *testing.T) (*loginlimit.RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return loginlimit.NewRedisLimiter(client, loginlimit.Policy{}, slog.Default()), server
}

/*
TestRedisLimiter_LockoutAfterBudget mirrors the in-memory lockout semantics
over shared Redis counters.
*/
func TestRedisLimiter_LockoutAfterBudget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newRedisLimiter(t)

	for i := 0; i < loginlimit.DefaultMaxAttempts-1; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
		assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)
	}

	limiter.RecordFailure(ctx, "10.0.0.1")

	verdict := limiter.Check(ctx, "10.0.0.1")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, 15, verdict.RetryAfterMinutes)
}

/*
TestRedisLimiter_WindowElapse verifies the counter's TTL releases the lockout
once the window passes with no further failures.
*/
func TestRedisLimiter_WindowElapse(t *testing.T) {
	ctx := context.Background()
	limiter, server := newRedisLimiter(t)

	for i := 0; i < loginlimit.DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}
	require.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	server.FastForward(loginlimit.DefaultLockoutWindow + time.Second)

	assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)
}

/*
TestRedisLimiter_RollingWindow verifies every failure re-arms the TTL, so the
lockout is anchored to the last failure.
*/
func TestRedisLimiter_RollingWindow(t *testing.T) {
	ctx := context.Background()
	limiter, server := newRedisLimiter(t)

	for i := 0; i < loginlimit.DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}

	server.FastForward(14 * time.Minute)
	verdict := limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 1, verdict.RetryAfterMinutes)

	// One more failure pushes the release a full window out again.
	limiter.RecordFailure(ctx, "10.0.0.1")
	verdict = limiter.Check(ctx, "10.0.0.1")
	require.False(t, verdict.Allowed)
	assert.Equal(t, 15, verdict.RetryAfterMinutes)
}

/*
TestRedisLimiter_SuccessClears verifies a successful login deletes the
counter, restoring the full budget.
*/
func TestRedisLimiter_SuccessClears(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newRedisLimiter(t)

	for i := 0; i < loginlimit.DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}
	require.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	limiter.RecordSuccess(ctx, "10.0.0.1")
	assert.True(t, limiter.Check(ctx, "10.0.0.1").Allowed)
}

/*
TestRedisLimiter_FailsOpen verifies a Redis outage allows attempts instead of
locking every user out.
*/
func TestRedisLimiter_FailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter, server := newRedisLimiter(t)

	for i := 0; i < loginlimit.DefaultMaxAttempts; i++ {
		limiter.RecordFailure(ctx, "10.0.0.1")
	}
	require.False(t, limiter.Check(ctx, "10.0.0.1").Allowed)

	server.Close()

	verdict := limiter.Check(ctx, "10.0.0.1")
	assert.True(t, verdict.Allowed)

	// Recording against a dead store must not panic either.
	limiter.RecordFailure(ctx, "10.0.0.1")
	limiter.RecordSuccess(ctx, "10.0.0.1")
}

/*
TestClientKey verifies the origin key derivation order: leftmost
X-Forwarded-For entry, then X-Real-IP, then the shared sentinel.
*/
func TestClientKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"forwarded_for_single", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded_for_chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"forwarded_wins_over_real_ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
		{"real_ip_fallback", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"no_headers", nil, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
			for name, value := range tt.headers {
				request.Header.Set(name, value)
			}

			assert.Equal(t, tt.expected, loginlimit.ClientKey(request))
		})
	}
}
