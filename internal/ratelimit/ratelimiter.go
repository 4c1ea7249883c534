package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces per-user request limits.
type Limiter interface {
	Allow(ctx context.Context, userID string, limit int) (bool, error)
}

// NoopLimiter allows all requests.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(ctx context.Context, userID string, limit int) (bool, error) {
	return true, nil
}

// RateLimiter implements distributed per-user rate limiting using a Redis
// sorted-set sliding window of one minute.
type RateLimiter struct {
	client *redis.Client
	expiry time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *redis.Client, expiry time.Duration) *RateLimiter {
	if expiry <= 0 {
		expiry = 2 * time.Minute
	}
	return &RateLimiter{client: client, expiry: expiry}
}

// Allow checks whether a request should be allowed for the given user.
// A limit of zero or less means unlimited.
func (rl *RateLimiter) Allow(ctx context.Context, userID string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:user:%s", userID)
	now := time.Now()
	windowStart := now.Add(-1 * time.Minute)

	pipe := rl.client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, rl.expiry)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	// countCmd counted the window before this request was added.
	return int(countCmd.Val()) < limit, nil
}
