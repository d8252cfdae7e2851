// Package http wires the HTTP API: routing, authentication middleware and
// request/response DTOs for the /api/v2 surface.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/handler"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/middleware"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/credentials"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/ratelimit"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
	"github.com/ultrainstinct-ai/site-connect/internal/tasks"
)

// Services carries everything the route tree needs.
type Services struct {
	Site        *site.Service
	Agents      *agents.Service
	Tasks       *tasks.Service
	Credentials *credentials.Service
	Limiter     ratelimit.Limiter
	Audit       auditlog.Recorder
	Metrics     *metrics.Metrics

	// WebhookSecret signs and verifies webhook bodies and request signatures.
	WebhookSecret string
	// AdminAPIKey gates /admin; empty disables the admin surface.
	AdminAPIKey string
	// Registry backs /metrics.
	Registry *prometheus.Registry
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.HandleMethodNotAllowed = true
	engine.Use(middleware.RequestLogger(srvs.Metrics))

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	if srvs.Registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(srvs.Registry, promhttp.HandlerOpts{})))
	}

	connectHandler := handler.NewConnectHandler(srvs.Site, srvs.Agents, srvs.Audit)
	agentsHandler := handler.NewAgentsHandler(srvs.Agents, srvs.Site)
	tasksHandler := handler.NewTasksHandler(srvs.Tasks, srvs.Agents)
	siteHandler := handler.NewSiteHandler(srvs.Site, srvs.Agents)
	webhookHandler := handler.NewWebhookHandler(srvs.WebhookSecret, srvs.Agents, srvs.Tasks, srvs.Audit, srvs.Metrics)

	v2 := engine.Group("/api/v2")
	v2.Use(middleware.RateLimit(srvs.Limiter, srvs.Metrics))

	// The webhook receiver authenticates by body signature, not by API key.
	v2.POST("/webhook", webhookHandler.Receive)

	authed := v2.Group("")
	authed.Use(middleware.KeyAuth(srvs.Credentials, srvs.WebhookSecret, srvs.Audit, srvs.Metrics))
	{
		authed.POST("/connect", connectHandler.Connect)
		authed.GET("/test", connectHandler.Test)
		authed.POST("/agents/register", agentsHandler.Register)
		authed.POST("/agents/heartbeat", agentsHandler.Heartbeat)
		authed.GET("/agents/list", agentsHandler.List)
		authed.POST("/agents/:agent_id/disconnect", agentsHandler.Disconnect)
		authed.POST("/tasks/create", tasksHandler.Create)
		authed.GET("/tasks/:task_id/status", tasksHandler.Status)
		authed.GET("/site/info", siteHandler.Info)
	}

	credentialsHandler := handler.NewCredentialsHandler(srvs.Credentials, srvs.Audit)
	admin := engine.Group("/admin")
	admin.Use(middleware.APIKeyAuth(srvs.AdminAPIKey))
	{
		admin.GET("/credentials", credentialsHandler.Status)
		admin.POST("/credentials/generate", credentialsHandler.Generate)
		admin.POST("/credentials/revoke", credentialsHandler.Revoke)
	}
}
