package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
)

type ConnectHandler struct {
	siteService  *site.Service
	agentService *agents.Service
	audit        auditlog.Recorder
}

func NewConnectHandler(siteService *site.Service, agentService *agents.Service, audit auditlog.Recorder) *ConnectHandler {
	return &ConnectHandler{
		siteService:  siteService,
		agentService: agentService,
		audit:        audit,
	}
}

// Connect confirms the shared key works and hands the caller the site
// descriptor and webhook endpoint it needs to bootstrap.
// POST /connect
func (h *ConnectHandler) Connect(c *gin.Context) {
	slog.Info("Platform connected", "client_ip", c.ClientIP())
	h.audit.Record(c.Request.Context(), auditlog.Entry{
		Level:      auditlog.LevelInfo,
		Message:    "Platform connection established",
		IP:         c.ClientIP(),
		ActionType: "connect",
	})

	c.JSON(http.StatusOK, dto.ConnectResponse{
		Success:    true,
		Message:    "Connection established",
		SiteInfo:   h.siteService.Info(),
		WebhookURL: h.siteService.WebhookURL(),
		Timestamp:  site.Now(),
	})
}

// Test is an authenticated liveness probe.
// GET /test
func (h *ConnectHandler) Test(c *gin.Context) {
	count, err := h.agentService.CountActive(c.Request.Context())
	if err != nil {
		slog.Error("Failed to count active agents", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to query agents"))
		return
	}

	c.JSON(http.StatusOK, dto.TestResponse{
		Success:      true,
		Message:      "Connection is working",
		ActiveAgents: count,
		Timestamp:    site.Now(),
	})
}
