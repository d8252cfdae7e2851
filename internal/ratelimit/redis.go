package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests with a single INCR round trip per check, so
// concurrent bursts from the same client cannot undercount.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int64
	window      time.Duration
}

func NewRedis(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: int64(maxRequests),
		window:      window,
	}
}

// Allow increments the window counter and denies once it exceeds the limit.
// Counter failures fail open: a Redis outage must not take the API down.
func (l *RedisLimiter) Allow(ctx context.Context, ip string, agentID string) bool {
	key := buildKey(ip, agentID)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Rate limit counter unavailable, allowing request", "error", err)
		return true
	}

	allowed := incr.Val() <= l.maxRequests
	if !allowed {
		slog.Warn("Rate limit exceeded",
			"ip", ip,
			"agent_id", agentID,
			"attempts", incr.Val())
	}
	return allowed
}
