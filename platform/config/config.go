// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler client/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WebhookConfig provides settings for the workflow executor callback ingress.
type WebhookConfig interface {
	GetWebhookAPIKey() string
}

// WorkflowConfig provides settings for the external workflow executor client.
type WorkflowConfig interface {
	GetWorkflowExecutorURL() string
	IsWorkflowExecutorEnabled() bool
}

// TaskPolicyConfig provides retry/backoff and reconciliation tuning for the
// task scheduler.
type TaskPolicyConfig interface {
	GetRetryBackoffBase() time.Duration
	GetRetryBackoffMax() time.Duration
	GetOverrunFactor() float64
	GetReconcileInterval() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	WebhookAPIKey       string
	WorkflowExecutorURL string
	RetryBackoffBase    time.Duration
	RetryBackoffMax     time.Duration
	OverrunFactor       float64
	ReconcileInterval   time.Duration
	SeedDemoData        bool
}

// Load reads configuration from the environment, with .env support.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    getIntEnv("ASYNQ_CONCURRENCY", 10),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WebhookAPIKey:       getEnv("WEBHOOK_API_KEY", ""),
		WorkflowExecutorURL: getEnv("WORKFLOW_EXECUTOR_URL", ""),
		RetryBackoffBase:    mustDuration(getEnv("RETRY_BACKOFF_BASE", "30s")),
		RetryBackoffMax:     mustDuration(getEnv("RETRY_BACKOFF_MAX", "1h")),
		OverrunFactor:       getFloatEnv("OVERRUN_FACTOR", 1.5),
		ReconcileInterval:   mustDuration(getEnv("RECONCILE_INTERVAL", "30s")),
		SeedDemoData:        strings.EqualFold(getEnv("SEED_DEMO_DATA", "false"), "true"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RetryBackoffBase <= 0 {
		return nil, fmt.Errorf("RETRY_BACKOFF_BASE must be a positive duration")
	}
	if cfg.RetryBackoffMax < cfg.RetryBackoffBase {
		return nil, fmt.Errorf("RETRY_BACKOFF_MAX must be >= RETRY_BACKOFF_BASE")
	}
	if cfg.OverrunFactor < 1 {
		return nil, fmt.Errorf("OVERRUN_FACTOR must be >= 1")
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

func (c *Config) GetWorkflowExecutorURL() string { return c.WorkflowExecutorURL }
func (c *Config) IsWorkflowExecutorEnabled() bool {
	return strings.TrimSpace(c.WorkflowExecutorURL) != ""
}

func (c *Config) GetRetryBackoffBase() time.Duration  { return c.RetryBackoffBase }
func (c *Config) GetRetryBackoffMax() time.Duration   { return c.RetryBackoffMax }
func (c *Config) GetOverrunFactor() float64           { return c.OverrunFactor }
func (c *Config) GetReconcileInterval() time.Duration { return c.ReconcileInterval }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func getIntEnv(key string, fallback int) int {
	raw, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getFloatEnv(key string, fallback float64) float64 {
	raw, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
