package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/tasks"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

// Inbound event types agents may post to the receiver.
const (
	EventAgentHeartbeat    = "agent_heartbeat"
	EventAgentStatusUpdate = "agent_status_update"
	EventTaskCompleted     = "task_completed"
	EventTaskFailed        = "task_failed"
	EventAgentError        = "agent_error"
)

// WebhookHandler receives signed events from agents. Authentication is the
// body signature alone; this endpoint does not require the API key, so an
// agent that only holds the webhook secret can still report in.
type WebhookHandler struct {
	secret       string
	agentService *agents.Service
	taskService  *tasks.Service
	audit        auditlog.Recorder
	metrics      *metrics.Metrics
}

func NewWebhookHandler(secret string, agentService *agents.Service, taskService *tasks.Service, audit auditlog.Recorder, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		secret:       secret,
		agentService: agentService,
		taskService:  taskService,
		audit:        audit,
		metrics:      m,
	}
}

// Receive authenticates and dispatches one inbound event.
// POST /webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_body", "Failed to read request body"))
		return
	}

	// The signature covers the verbatim body, with no timestamp component on
	// this inbound path.
	signature := c.GetHeader(webhook.SignatureHeader)
	if !webhook.Verify(h.secret, body, signature) {
		slog.Warn("Webhook with invalid signature", "client_ip", c.ClientIP())
		h.audit.Record(c.Request.Context(), auditlog.Entry{
			Level:      auditlog.LevelWarning,
			Message:    "Webhook rejected: invalid signature",
			IP:         c.ClientIP(),
			ActionType: "webhook_receive",
		})
		c.JSON(http.StatusUnauthorized, dto.NewError("invalid_signature", "Invalid webhook signature"))
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_json", "Invalid JSON payload"))
		return
	}

	h.metrics.InboundEvents.WithLabelValues(event.Event).Inc()
	slog.Info("Webhook event received", "event", event.Event, "agent_id", event.AgentID)
	h.audit.Record(c.Request.Context(), auditlog.Entry{
		Level:      auditlog.LevelInfo,
		Message:    fmt.Sprintf("Webhook event received: %s", event.Event),
		Context:    map[string]any{"event": event.Event},
		IP:         c.ClientIP(),
		AgentID:    event.AgentID,
		ActionType: "webhook_receive",
	})

	switch event.Event {
	case EventAgentHeartbeat:
		h.handleHeartbeat(c, event)
	case EventAgentStatusUpdate:
		h.handleStatusUpdate(c, event)
	case EventTaskCompleted:
		h.handleTaskResult(c, event, true)
	case EventTaskFailed:
		h.handleTaskResult(c, event, false)
	case EventAgentError:
		h.handleAgentError(c, event)
	default:
		c.JSON(http.StatusBadRequest, dto.NewError("unknown_event_type",
			fmt.Sprintf("Unknown event type: %s", event.Event)))
	}
}

func (h *WebhookHandler) handleHeartbeat(c *gin.Context, event dto.WebhookEvent) {
	if err := h.agentService.Heartbeat(c.Request.Context(), event.AgentID, event.Metadata); err != nil {
		slog.Error("Failed to process heartbeat event", "error", err, "agent_id", event.AgentID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to process heartbeat"))
		return
	}
	c.JSON(http.StatusOK, dto.WebhookAckResponse{Success: true, Message: "Heartbeat recorded"})
}

func (h *WebhookHandler) handleStatusUpdate(c *gin.Context, event dto.WebhookEvent) {
	status := event.Status
	if status == "" {
		status = agents.StatusActive
	}
	if err := h.agentService.UpdateStatus(c.Request.Context(), event.AgentID, status); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_status", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.WebhookAckResponse{Success: true, Message: "Status updated"})
}

func (h *WebhookHandler) handleTaskResult(c *gin.Context, event dto.WebhookEvent, completed bool) {
	if event.TaskID == "" {
		c.JSON(http.StatusBadRequest, dto.NewError("missing_field", "task_id is required"))
		return
	}

	var err error
	if completed {
		err = h.taskService.Complete(c.Request.Context(), event.TaskID, event.AgentID, event.Result)
	} else {
		err = h.taskService.Fail(c.Request.Context(), event.TaskID, event.AgentID, event.Error)
	}
	if err != nil {
		slog.Error("Failed to record task result", "error", err, "task_id", event.TaskID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to record task result"))
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Success: true, Message: "Task result recorded"})
}

func (h *WebhookHandler) handleAgentError(c *gin.Context, event dto.WebhookEvent) {
	message := event.Error
	if message == "" {
		message = "Unknown agent error"
	}
	slog.Error("Agent reported error", "agent_id", event.AgentID, "error", message)
	h.audit.Record(c.Request.Context(), auditlog.Entry{
		Level:      auditlog.LevelError,
		Message:    fmt.Sprintf("Agent error: %s", message),
		Context:    map[string]any{"error": message},
		AgentID:    event.AgentID,
		ActionType: "agent_error",
	})
	c.JSON(http.StatusOK, dto.WebhookAckResponse{Success: true, Message: "Error logged"})
}
