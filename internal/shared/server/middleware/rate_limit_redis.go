package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// RedisLimiter is a fixed-window limiter shared across API replicas. A
// window lasts Burst/Rate seconds and admits Burst requests.
type RedisLimiter struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisLimiter constructs a RedisLimiter with the default key prefix.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{Client: client, Prefix: "ratelimit:"}
}

// Allow fails open when Redis is unreachable.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.Client == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	window := time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	k := l.Prefix + key

	count, err := l.Client.Incr(ctx, k).Result()
	if err != nil {
		telemetry.Warn("ratelimit.redis.error", map[string]any{"error": err.Error()})
		return true, 0
	}
	if count == 1 {
		if err := l.Client.Expire(ctx, k, window).Err(); err != nil {
			telemetry.Warn("ratelimit.redis.error", map[string]any{"error": err.Error()})
		}
	}
	if count <= int64(rule.Burst) {
		return true, 0
	}
	ttl, err := l.Client.PTTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return false, ttl
}

var _ Limiter = (*RedisLimiter)(nil)
