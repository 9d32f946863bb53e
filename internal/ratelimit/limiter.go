// Package ratelimit throttles the public subscribe endpoint per client
// IP with a fixed window counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/converze/newsletter/internal/pkg/logger"
)

// Limiter counts requests per key in one-minute windows.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New connects a limiter to Redis. perMinute requests are allowed per
// key per window.
func New(addr, password string, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 5
	}
	return &Limiter{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		limit:  perMinute,
		window: time.Minute,
	}
}

// NewWithClient wraps an existing Redis client (used in tests).
func NewWithClient(client *redis.Client, perMinute int) *Limiter {
	return &Limiter{client: client, limit: perMinute, window: time.Minute}
}

// Allow reports whether the key may proceed. Redis being unreachable
// fails open: throttling is protection, not a dependency.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:subscribe:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.Warn("rate limiter unavailable, allowing request", "error", err.Error())
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			logger.Warn("setting rate limit window failed", "error", err.Error())
		}
	}
	return count <= int64(l.limit)
}

// Ping verifies the Redis connection.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}
