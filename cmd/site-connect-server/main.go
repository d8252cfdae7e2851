package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	internalhttp "github.com/ultrainstinct-ai/site-connect/internal/api/http"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/credentials"
	"github.com/ultrainstinct-ai/site-connect/internal/db"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/ratelimit"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
	"github.com/ultrainstinct-ai/site-connect/internal/tasks"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Site Connect Server", "version", AppVersion)

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var audit auditlog.Recorder = auditlog.Nop{}
	var auditRecorder *auditlog.PostgresRecorder
	if config.AuditLog.Enabled {
		auditRecorder = auditlog.NewPostgresRecorder(pool)
		audit = auditRecorder
	}

	var limiter ratelimit.Limiter
	if config.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable at startup, continuing", "error", err)
		}
		limiter = ratelimit.NewRedis(redisClient, config.RateLimit.MaxRequests, config.RateLimit.Window)
		slog.Info("Rate limiting via Redis", "addr", config.Redis.Addr)
	} else {
		memLimiter := ratelimit.NewMemory(config.RateLimit.MaxRequests, config.RateLimit.Window)
		go memLimiter.StartCleanup(ctx, config.RateLimit.Window)
		limiter = memLimiter
		slog.Info("Rate limiting in memory")
	}

	siteService := site.NewService(config.Site, AppVersion)
	credService := credentials.NewService(credentials.NewPostgresStore(pool), config.Site.URL, config.Security.SiteSecret)
	dispatcher := webhook.NewDispatcher(config.Security.WebhookSecret, config.Site.URL, config.Agents.DeliveryTimeout)
	agentService := agents.NewService(agents.NewPostgresStore(pool), dispatcher, audit, m, config.Agents.InactiveAfter)
	taskService := tasks.NewService(tasks.NewPostgresStore(pool))

	go runMaintenance(ctx, agentService, auditRecorder)

	services := &internalhttp.Services{
		Site:          siteService,
		Agents:        agentService,
		Tasks:         taskService,
		Credentials:   credService,
		Limiter:       limiter,
		Audit:         audit,
		Metrics:       m,
		WebhookSecret: config.Security.WebhookSecret,
		AdminAPIKey:   config.Http.AdminAPIKey,
		Registry:      registry,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", webhook.KeyHeader, webhook.SignatureHeader, webhook.TimestampHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}

// runMaintenance owns the background housekeeping: marking quiet agents
// inactive and trimming expired audit rows. Runs until ctx is cancelled.
func runMaintenance(ctx context.Context, agentService *agents.Service, auditRecorder *auditlog.PostgresRecorder) {
	sweepTicker := time.NewTicker(config.Agents.SweepInterval)
	defer sweepTicker.Stop()

	purgeTicker := time.NewTicker(config.AuditLog.PurgeInterval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			if _, err := agentService.SweepInactive(ctx); err != nil {
				slog.Error("Inactive sweep failed", "error", err)
			}
		case <-purgeTicker.C:
			if auditRecorder == nil {
				continue
			}
			n, err := auditRecorder.PurgeOlderThan(ctx, config.AuditLog.Retention)
			if err != nil {
				slog.Error("Audit log purge failed", "error", err)
			} else if n > 0 {
				slog.Info("Purged expired audit log entries", "count", n)
			}
		}
	}
}
