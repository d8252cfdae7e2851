package dto

import (
	"time"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
)

type CreateTaskRequest struct {
	TaskType   string         `json:"task_type"`
	Payload    map[string]any `json:"payload"`
	AgentTypes []string       `json:"agent_types"`
}

type CreateTaskResponse struct {
	Success        bool                              `json:"success"`
	TaskID         string                            `json:"task_id"`
	Status         string                            `json:"status"`
	AgentsNotified int                               `json:"agents_notified"`
	Deliveries     map[string]agents.BroadcastResult `json:"deliveries"`
}

type TaskStatusResponse struct {
	Success     bool           `json:"success"`
	TaskID      string         `json:"task_id"`
	TaskType    string         `json:"task_type"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	AgentID     string         `json:"agent_id,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
