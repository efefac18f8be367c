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

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WhatsAppConfig provides settings for the WhatsApp gateway client.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	IsWhatsAppEnabled() bool
}

// RoutingConfig provides tuning knobs for the assignment engine.
type RoutingConfig interface {
	GetAssignMaxAttempts() int
	GetAssignRetryBaseDelay() time.Duration
}

// Config is the concrete application configuration loaded from the environment.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	JWTAccessSecret      string
	AccessTokenTTL       time.Duration
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	WhatsAppURL          string
	WhatsAppKey          string
	WhatsAppDeviceID     string
	AssignMaxAttempts    int
	AssignRetryBaseDelay time.Duration
}

func (c *Config) GetDatabaseURL() string                { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string            { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration      { return c.AccessTokenTTL }
func (c *Config) GetHTTPAddr() string                   { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool                 { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string              { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool               { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetWhatsAppURL() string                { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string                { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string           { return c.WhatsAppDeviceID }
func (c *Config) IsWhatsAppEnabled() bool               { return c.WhatsAppURL != "" }
func (c *Config) GetAssignMaxAttempts() int             { return c.AssignMaxAttempts }
func (c *Config) GetAssignRetryBaseDelay() time.Duration { return c.AssignRetryBaseDelay }

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:       mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		WhatsAppURL:          getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:          getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:     getEnv("WHATSAPP_DEVICE_ID", ""),
		AssignMaxAttempts:    mustInt(getEnv("ASSIGN_MAX_ATTEMPTS", "3")),
		AssignRetryBaseDelay: mustDuration(getEnv("ASSIGN_RETRY_BASE_DELAY", "25ms")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.AssignMaxAttempts < 1 {
		return nil, fmt.Errorf("ASSIGN_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
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

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
