package dto

import "github.com/ultrainstinct-ai/site-connect/internal/site"

type ConnectResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	SiteInfo   site.Info `json:"site_info"`
	WebhookURL string    `json:"webhook_url"`
	Timestamp  string    `json:"timestamp"`
}

type TestResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ActiveAgents int    `json:"active_agents"`
	Timestamp    string `json:"timestamp"`
}

type SiteInfoResponse struct {
	Success      bool          `json:"success"`
	SiteInfo     site.Info     `json:"site_info"`
	Plugins      []site.Plugin `json:"plugins"`
	Themes       []site.Theme  `json:"themes"`
	ActiveAgents int           `json:"active_agents"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
