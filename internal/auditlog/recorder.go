// Package auditlog persists security and lifecycle events to the
// activity_log table for later inspection. Recording is best effort: a
// failed write degrades to a process log line and never fails the request
// that produced the event.
package auditlog

import (
	"context"
	"time"
)

// Log levels stored with each entry.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Entry struct {
	Level      string
	Message    string
	Context    map[string]any
	IP         string
	AgentID    string
	ActionType string
	LoggedAt   time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards every entry. Used when persistent logging is disabled and in
// tests.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
