package dto

// WebhookEvent is the inbound event payload agents POST to the receiver.
// Event-specific fields (status, task_id, result, error, metadata) ride at
// the top level of the body alongside event and agent_id.
type WebhookEvent struct {
	Event    string         `json:"event"`
	AgentID  string         `json:"agent_id"`
	Status   string         `json:"status,omitempty"`
	TaskID   string         `json:"task_id,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type WebhookAckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
