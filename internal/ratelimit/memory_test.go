package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUpToLimit(t *testing.T) {
	l := NewMemory(5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(ctx, "10.0.0.1", ""), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(ctx, "10.0.0.1", ""))
	assert.False(t, l.Allow(ctx, "10.0.0.1", ""))
}

func TestWindowReset(t *testing.T) {
	l := NewMemory(2, time.Hour)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1", ""))
	assert.True(t, l.Allow(ctx, "10.0.0.1", ""))
	assert.False(t, l.Allow(ctx, "10.0.0.1", ""))

	// After the window expires the counter starts over.
	now = now.Add(time.Hour + time.Second)
	assert.True(t, l.Allow(ctx, "10.0.0.1", ""))
}

func TestClientsAreIndependent(t *testing.T) {
	l := NewMemory(1, time.Hour)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1", ""))
	assert.False(t, l.Allow(ctx, "10.0.0.1", ""))

	assert.True(t, l.Allow(ctx, "10.0.0.2", ""))
}

func TestAgentIDWidensKey(t *testing.T) {
	l := NewMemory(1, time.Hour)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1", "agent-a"))
	assert.False(t, l.Allow(ctx, "10.0.0.1", "agent-a"))

	// Same IP with a different agent id is a separate bucket.
	assert.True(t, l.Allow(ctx, "10.0.0.1", "agent-b"))
	assert.True(t, l.Allow(ctx, "10.0.0.1", ""))
}

func TestCleanupDropsExpired(t *testing.T) {
	l := NewMemory(10, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Allow(ctx, "10.0.0.1", "")
	l.Allow(ctx, "10.0.0.2", "")
	assert.Len(t, l.counters, 2)

	now = now.Add(2 * time.Minute)
	l.cleanup()
	assert.Empty(t, l.counters)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, buildKey("10.0.0.1", ""), buildKey("10.0.0.1", ""))
	assert.NotEqual(t, buildKey("10.0.0.1", ""), buildKey("10.0.0.2", ""))
	assert.NotEqual(t, buildKey("10.0.0.1", ""), buildKey("10.0.0.1", "agent-a"))
	assert.Contains(t, buildKey("10.0.0.1", ""), "ratelimit:")
}
