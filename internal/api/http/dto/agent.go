package dto

import (
	"time"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
)

type RegisterAgentRequest struct {
	AgentID      string         `json:"agent_id"`
	AgentName    string         `json:"agent_name"`
	AgentType    string         `json:"agent_type"`
	Capabilities []string       `json:"capabilities"`
	Metadata     map[string]any `json:"metadata"`
}

type RegisterAgentResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Agent    AgentResponse `json:"agent"`
	SiteInfo site.Info     `json:"site_info"`
}

type HeartbeatRequest struct {
	AgentID  string         `json:"agent_id"`
	Metadata map[string]any `json:"metadata"`
}

type HeartbeatResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

type AgentResponse struct {
	AgentID      string         `json:"agent_id"`
	AgentName    string         `json:"agent_name"`
	AgentType    string         `json:"agent_type"`
	Status       string         `json:"status"`
	LastSeen     time.Time      `json:"last_seen"`
	Capabilities []string       `json:"capabilities"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ListAgentsResponse struct {
	Success bool            `json:"success"`
	Agents  []AgentResponse `json:"agents"`
	Count   int             `json:"count"`
}

type DisconnectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func FromAgent(a agents.Agent) AgentResponse {
	return AgentResponse{
		AgentID:      a.AgentID,
		AgentName:    a.AgentName,
		AgentType:    a.AgentType,
		Status:       a.Status,
		LastSeen:     a.LastSeen,
		Capabilities: a.Capabilities,
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
	}
}
