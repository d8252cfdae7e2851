package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
)

type AgentsHandler struct {
	agentService *agents.Service
	siteService  *site.Service
}

func NewAgentsHandler(agentService *agents.Service, siteService *site.Service) *AgentsHandler {
	return &AgentsHandler{
		agentService: agentService,
		siteService:  siteService,
	}
}

// Register creates or refreshes an agent record.
// POST /agents/register
func (h *AgentsHandler) Register(c *gin.Context) {
	var req dto.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_json", "Invalid request body"))
		return
	}

	agent, err := h.agentService.Register(c.Request.Context(), agents.RegisterInput{
		AgentID:      req.AgentID,
		AgentName:    req.AgentName,
		AgentType:    req.AgentType,
		Capabilities: req.Capabilities,
		Metadata:     req.Metadata,
	})
	if err != nil {
		var missing *agents.MissingFieldError
		if errors.As(err, &missing) {
			c.JSON(http.StatusBadRequest, dto.NewError("missing_field", missing.Error()))
			return
		}
		slog.Error("Failed to register agent", "error", err, "agent_id", req.AgentID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to register agent"))
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterAgentResponse{
		Success:  true,
		Message:  "Agent registered",
		Agent:    dto.FromAgent(*agent),
		SiteInfo: h.siteService.Info(),
	})
}

// Heartbeat refreshes an agent's liveness.
// POST /agents/heartbeat
func (h *AgentsHandler) Heartbeat(c *gin.Context) {
	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_json", "Invalid request body"))
		return
	}
	if req.AgentID == "" {
		c.JSON(http.StatusBadRequest, dto.NewError("missing_field", "agent_id is required"))
		return
	}

	if err := h.agentService.Heartbeat(c.Request.Context(), req.AgentID, req.Metadata); err != nil {
		slog.Error("Failed to record heartbeat", "error", err, "agent_id", req.AgentID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to record heartbeat"))
		return
	}

	c.JSON(http.StatusOK, dto.HeartbeatResponse{Success: true, Timestamp: site.Now()})
}

// List returns all known agents, optionally filtered by status.
// GET /agents/list
func (h *AgentsHandler) List(c *gin.Context) {
	agentList, err := h.agentService.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		slog.Error("Failed to list agents", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to list agents"))
		return
	}

	responses := make([]dto.AgentResponse, len(agentList))
	for i, a := range agentList {
		responses[i] = dto.FromAgent(a)
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{
		Success: true,
		Agents:  responses,
		Count:   len(responses),
	})
}

// Disconnect marks an agent as deliberately gone.
// POST /agents/:agent_id/disconnect
func (h *AgentsHandler) Disconnect(c *gin.Context) {
	agentID := c.Param("agent_id")

	matched, err := h.agentService.Disconnect(c.Request.Context(), agentID)
	if err != nil {
		slog.Error("Failed to disconnect agent", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to disconnect agent"))
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, dto.NewError("agent_not_found", "Agent not found"))
		return
	}

	c.JSON(http.StatusOK, dto.DisconnectResponse{Success: true, Message: "Agent disconnected"})
}
