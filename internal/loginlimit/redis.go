// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package loginlimit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/crewhq/gateway/internal/platform/constants"
)

// RedisLimiter is a [Limiter] over shared Redis counters with per-key TTL.
//
// Every failure INCRs the origin's counter and re-arms its TTL to the full
// lockout window, which yields the same rolling semantics as [MemoryLimiter]:
// the window is anchored to the last failure, and an expired key reads as a
// clean record. Because the state is shared, a lockout holds across all
// gateway replicas and survives redeploys.
type RedisLimiter struct {
	client *redis.Client
	policy Policy
	log    *slog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter with the given policy.
func NewRedisLimiter(client *redis.Client, policy Policy, log *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		policy: policy.withDefaults(),
		log:    log,
	}
}

// Check reports whether an attempt from key may proceed.
//
// Redis outages fail open: an unreachable lockout store must not lock every
// user out of the dashboard.
func (l *RedisLimiter) Check(ctx context.Context, key string) Verdict {
	count, err := l.client.Get(ctx, failureKey(key)).Int()
	if errors.Is(err, redis.Nil) {
		return Verdict{Allowed: true}
	}
	if err != nil {
		l.warn(ctx, "check", err)
		return Verdict{Allowed: true}
	}

	if count < l.policy.MaxAttempts {
		return Verdict{Allowed: true}
	}

	remaining, err := l.client.PTTL(ctx, failureKey(key)).Result()
	if err != nil || remaining <= 0 {
		// Key expired between the two commands, or TTL unreadable.
		if err != nil {
			l.warn(ctx, "pttl", err)
		}
		return Verdict{Allowed: true}
	}

	return Verdict{
		Allowed:           false,
		RetryAfterMinutes: remainingMinutes(remaining),
	}
}

// RecordFailure increments the failure counter and re-arms its TTL.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) {
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, failureKey(key))
	pipe.Expire(ctx, failureKey(key), l.policy.LockoutWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		l.warn(ctx, "record_failure", err)
	}
}

// RecordSuccess deletes the failure counter for key.
func (l *RedisLimiter) RecordSuccess(ctx context.Context, key string) {
	if err := l.client.Del(ctx, failureKey(key)).Err(); err != nil {
		l.warn(ctx, "record_success", err)
	}
}

// warn logs a storage failure once per operation. The limiter contract is to
// never raise, so this is the only trace an outage leaves.
func (l *RedisLimiter) warn(ctx context.Context, operation string, err error) {
	l.log.WarnContext(ctx, "login_limiter_redis_unavailable",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}

// failureKey namespaces the lockout counter for one client origin.
func failureKey(key string) string {
	return constants.RedisPrefixLoginFailures + key
}

// interface guards
var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
