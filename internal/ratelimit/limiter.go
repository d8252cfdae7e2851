// Package ratelimit bounds request counts per client identity over a fixed
// window. The window is a bucket that resets on expiry, not a sliding log;
// bursts straddling a window boundary are accepted as a known imprecision.
package ratelimit

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// Limiter reports whether another request from the given client identity is
// allowed inside the current window.
type Limiter interface {
	Allow(ctx context.Context, ip string, agentID string) bool
}

// buildKey composes the counter key for (ip, optional agent id). The
// identifiers are digested so raw IPs and agent names never appear as keys.
func buildKey(ip string, agentID string) string {
	ipSum := md5.Sum([]byte(ip))
	key := "ratelimit:" + hex.EncodeToString(ipSum[:])
	if agentID != "" {
		agentSum := md5.Sum([]byte(agentID))
		key += ":" + hex.EncodeToString(agentSum[:])
	}
	return key
}
