package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
)

type SiteHandler struct {
	siteService  *site.Service
	agentService *agents.Service
}

func NewSiteHandler(siteService *site.Service, agentService *agents.Service) *SiteHandler {
	return &SiteHandler{
		siteService:  siteService,
		agentService: agentService,
	}
}

// Info returns the site descriptor plus the platform inventory.
// GET /site/info
func (h *SiteHandler) Info(c *gin.Context) {
	count, err := h.agentService.CountActive(c.Request.Context())
	if err != nil {
		slog.Error("Failed to count active agents", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to query agents"))
		return
	}

	c.JSON(http.StatusOK, dto.SiteInfoResponse{
		Success:      true,
		SiteInfo:     h.siteService.Info(),
		Plugins:      h.siteService.Plugins(),
		Themes:       h.siteService.Themes(),
		ActiveAgents: count,
	})
}
