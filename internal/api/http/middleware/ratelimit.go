package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/ratelimit"
)

// RateLimit rejects requests once the client IP exhausts its window. It runs
// before authentication so key verification work cannot be farmed by a
// flooding client.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(c.Request.Context(), ip, "") {
			m.AuthDenials.WithLabelValues("rate_limited").Inc()
			slog.Warn("Rate limit exceeded", "client_ip", ip, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewError("rate_limited", "Rate limit exceeded"))
			return
		}

		c.Next()
	}
}
