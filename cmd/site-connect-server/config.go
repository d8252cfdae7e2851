package main

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http"
	"github.com/ultrainstinct-ai/site-connect/internal/db"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
)

type Config struct {
	Log       LogConfig
	Http      http.Config
	Database  db.Config
	Redis     RedisConfig
	Site      site.Config
	Security  SecurityConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Agents    AgentsConfig
	AuditLog  AuditLogConfig `mapstructure:"audit_log"`
}

type RedisConfig struct {
	// Addr empty means rate limiting falls back to the in-process counter.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SecurityConfig struct {
	// SiteSecret salts the stored API key hash.
	SiteSecret string `mapstructure:"site_secret"`
	// WebhookSecret signs webhook bodies and request signatures.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type AgentsConfig struct {
	InactiveAfter   time.Duration `mapstructure:"inactive_after"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

type AuditLogConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Retention     time.Duration `mapstructure:"retention"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/site-connect-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("rate_limit.max_requests", 100)
	viper.SetDefault("rate_limit.window", time.Hour)
	viper.SetDefault("agents.inactive_after", 10*time.Minute)
	viper.SetDefault("agents.sweep_interval", time.Minute)
	viper.SetDefault("agents.delivery_timeout", 30*time.Second)
	viper.SetDefault("audit_log.enabled", true)
	viper.SetDefault("audit_log.retention", 30*24*time.Hour)
	viper.SetDefault("audit_log.purge_interval", time.Hour)

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("security.site_secret", "SITE_SECRET")
	_ = viper.BindEnv("security.webhook_secret", "WEBHOOK_SECRET")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)
}
