package tasks

import "time"

// Task status values. A task starts pending and is resolved by the result
// reported back from an agent.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Task struct {
	ID        string
	TaskType  string
	Payload   map[string]any
	Status    string
	CreatedAt time.Time
}

// Result is the outcome an agent reported for a task. Exactly one of
// Result/Error is meaningful depending on Status.
type Result struct {
	TaskID      string
	Status      string
	Result      map[string]any
	Error       string
	AgentID     string
	CompletedAt time.Time
}
