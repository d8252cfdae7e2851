package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/credentials"
)

// CredentialsHandler is the operator surface for the shared site key.
type CredentialsHandler struct {
	credService *credentials.Service
	audit       auditlog.Recorder
}

func NewCredentialsHandler(credService *credentials.Service, audit auditlog.Recorder) *CredentialsHandler {
	return &CredentialsHandler{
		credService: credService,
		audit:       audit,
	}
}

// Generate mints a new shared key, replacing any previous one. The raw key
// appears in this response and nowhere else.
// POST /admin/credentials/generate
func (h *CredentialsHandler) Generate(c *gin.Context) {
	key, err := h.credService.Generate()
	if err != nil {
		slog.Error("Failed to generate API key", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to generate API key"))
		return
	}

	if err := h.credService.Store(c.Request.Context(), key); err != nil {
		slog.Error("Failed to store API key", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to store API key"))
		return
	}

	h.audit.Record(c.Request.Context(), auditlog.Entry{
		Level:      auditlog.LevelInfo,
		Message:    "API key generated",
		IP:         c.ClientIP(),
		ActionType: "key_generate",
	})

	c.JSON(http.StatusOK, dto.GenerateKeyResponse{
		Success: true,
		APIKey:  key,
		Message: "Store this key now; it is not shown again",
	})
}

// Revoke deletes the stored key, disconnecting all clients that held it.
// POST /admin/credentials/revoke
func (h *CredentialsHandler) Revoke(c *gin.Context) {
	if err := h.credService.Revoke(c.Request.Context()); err != nil {
		slog.Error("Failed to revoke API key", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to revoke API key"))
		return
	}

	h.audit.Record(c.Request.Context(), auditlog.Entry{
		Level:      auditlog.LevelInfo,
		Message:    "API key revoked",
		IP:         c.ClientIP(),
		ActionType: "key_revoke",
	})

	c.JSON(http.StatusOK, dto.RevokeKeyResponse{Success: true, Message: "API key revoked"})
}

// Status reports whether a key exists and the connection state, never the
// key material itself.
// GET /admin/credentials
func (h *CredentialsHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, dto.CredentialsStatusResponse{
		Success: true,
		HasKey:  h.credService.HasKey(ctx),
		Status:  h.credService.Status(ctx),
	})
}
