package middleware

import (
	"bytes"
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

const adminKeyHeader = "X-API-Key"

// replayWindow bounds how far a signed request's timestamp may drift from
// server time in either direction.
const replayWindow = 300 * time.Second

// KeyVerifier checks a presented API key against the stored credential.
type KeyVerifier interface {
	Verify(ctx context.Context, key string) bool
}

// KeyAuth authenticates API requests against the shared site key, presented
// either in the dedicated header or as a bearer token. When the client also
// sends a request signature it must verify; a bad signature is rejected even
// though the key alone was valid.
func KeyAuth(verifier KeyVerifier, secret string, audit auditlog.Recorder, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(webhook.KeyHeader)
		if key == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				key = strings.TrimPrefix(header, "Bearer ")
			}
		}

		if key == "" {
			m.AuthDenials.WithLabelValues("no_key").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError("no_key", "API key required"))
			return
		}

		if !verifier.Verify(c.Request.Context(), key) {
			m.AuthDenials.WithLabelValues("invalid_key").Inc()
			slog.Warn("Invalid API key",
				"client_ip", c.ClientIP(),
				"user_agent", c.Request.UserAgent(),
				"path", c.Request.URL.Path)
			audit.Record(c.Request.Context(), auditlog.Entry{
				Level:      auditlog.LevelWarning,
				Message:    "API request with invalid key",
				Context:    map[string]any{"path": c.Request.URL.Path},
				IP:         c.ClientIP(),
				ActionType: "auth_failure",
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError("invalid_key", "Invalid API key"))
			return
		}

		if signature := c.GetHeader(webhook.SignatureHeader); signature != "" {
			if !verifyRequestSignature(c, secret, signature) {
				m.AuthDenials.WithLabelValues("invalid_signature").Inc()
				slog.Warn("Invalid request signature",
					"client_ip", c.ClientIP(),
					"path", c.Request.URL.Path)
				audit.Record(c.Request.Context(), auditlog.Entry{
					Level:      auditlog.LevelWarning,
					Message:    "API request with invalid signature",
					Context:    map[string]any{"path": c.Request.URL.Path},
					IP:         c.ClientIP(),
					ActionType: "auth_failure",
				})
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					dto.NewError("invalid_signature", "Invalid request signature"))
				return
			}
		}

		c.Next()
	}
}

// verifyRequestSignature checks the timestamp freshness and the HMAC over
// timestamp+body. The body is restored afterwards so handlers can still
// bind it.
func verifyRequestSignature(c *gin.Context, secret string, signature string) bool {
	timestamp := c.GetHeader(webhook.TimestampHeader)
	if timestamp == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	drift := time.Since(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > replayWindow {
		return false
	}

	body, err := c.GetRawData()
	if err != nil {
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	return webhook.VerifyRequest(secret, timestamp, body, signature)
}

// APIKeyAuth gates the admin surface behind a static operator key.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			slog.Warn("Admin API key not configured, rejecting request",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				dto.NewError("admin_disabled", "Admin API is not configured"))
			return
		}

		providedKey := c.GetHeader(adminKeyHeader)
		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError("no_key", "Missing API key"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			slog.Warn("Invalid admin API key attempt",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError("invalid_key", "Invalid API key"))
			return
		}

		c.Next()
	}
}
