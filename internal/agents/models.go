package agents

import (
	"time"
)

// Agent status lifecycle: active -> inactive (sweep) -> active (re-register
// or heartbeat) | disconnected (explicit), active -> disconnected.
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusDisconnected = "disconnected"
)

// MetadataWebhookURL is the metadata key carrying an agent's callback URL.
const MetadataWebhookURL = "webhook_url"

type Agent struct {
	AgentID      string
	AgentName    string
	AgentType    string
	Status       string
	LastSeen     time.Time
	Capabilities []string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// WebhookURL returns the callback URL from metadata, or "" when the agent
// never supplied one.
func (a *Agent) WebhookURL() string {
	if a.Metadata == nil {
		return ""
	}
	url, _ := a.Metadata[MetadataWebhookURL].(string)
	return url
}

// HasCapability reports whether the agent advertised the given capability.
func (a *Agent) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type RegisterInput struct {
	AgentID      string
	AgentName    string
	AgentType    string
	Capabilities []string
	Metadata     map[string]any
}
