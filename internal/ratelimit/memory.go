package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the in-process fallback used when no Redis address is
// configured. Window semantics match RedisLimiter exactly.
type MemoryLimiter struct {
	mu          sync.Mutex
	counters    map[string]*windowCounter
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func NewMemory(maxRequests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counters:    make(map[string]*windowCounter),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, ip string, agentID string) bool {
	key := buildKey(ip, agentID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || now.After(c.resetAt) {
		l.counters[key] = &windowCounter{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	c.count++
	if c.count > l.maxRequests {
		slog.Warn("Rate limit exceeded",
			"ip", ip,
			"agent_id", agentID,
			"attempts", c.count)
		return false
	}
	return true
}

// StartCleanup drops expired counters periodically so the map does not grow
// without bound. Runs until ctx is cancelled.
func (l *MemoryLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *MemoryLimiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.counters {
		if now.After(c.resetAt) {
			delete(l.counters, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up rate limit counters", "removed", removed)
	}
}
