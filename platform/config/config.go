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

// JWTConfig provides the secret used to validate service-role and technician tokens.
type JWTConfig interface {
	GetServiceJWTSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq worker and periodic triggers.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetAutopilotCron() string
	GetTimeoutSweepCron() string
	GetAutopilotSweepMode() string
	GetBusinessLocation() *time.Location
}

// RedisConfig provides the redis connection used by the live position cache.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// WhatsAppConfig provides settings for the GoWA WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// SMTPConfig provides settings for outbound email.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// BusinessConfig provides locale settings of the repair business.
type BusinessConfig interface {
	GetBusinessLocation() *time.Location
	GetPhoneDefaultRegion() string
	GetStaleLockMaxAge() time.Duration
}

// TrackingConfig provides settings for the live-location pipeline.
type TrackingConfig interface {
	GetTrackingPositionTTL() time.Duration
	GetTrackingFrameInterval() time.Duration
	IsTrackingAnimationEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	MigrationsEnabled        bool
	ServiceJWTSecret         string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	AutopilotCron            string
	TimeoutSweepCron         string
	AutopilotSweepMode       string
	WhatsAppURL              string
	WhatsAppKey              string
	WhatsAppDeviceID         string
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	BusinessTimezone         string
	BusinessLocation         *time.Location
	PhoneDefaultRegion       string
	StaleLockMaxAge          time.Duration
	TrackingPositionTTL      time.Duration
	TrackingFrameInterval    time.Duration
	TrackingAnimationEnabled bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetServiceJWTSecret() string { return c.ServiceJWTSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetAutopilotCron() string      { return c.AutopilotCron }
func (c *Config) GetTimeoutSweepCron() string   { return c.TimeoutSweepCron }
func (c *Config) GetAutopilotSweepMode() string { return c.AutopilotSweepMode }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" }

// BusinessConfig implementation
func (c *Config) GetBusinessLocation() *time.Location { return c.BusinessLocation }
func (c *Config) GetPhoneDefaultRegion() string       { return c.PhoneDefaultRegion }
func (c *Config) GetStaleLockMaxAge() time.Duration   { return c.StaleLockMaxAge }

// TrackingConfig implementation
func (c *Config) GetTrackingPositionTTL() time.Duration   { return c.TrackingPositionTTL }
func (c *Config) GetTrackingFrameInterval() time.Duration { return c.TrackingFrameInterval }
func (c *Config) IsTrackingAnimationEnabled() bool        { return c.TrackingAnimationEnabled }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrationsEnabled:        strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		ServiceJWTSecret:         getEnv("SERVICE_JWT_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		AutopilotCron:            getEnv("AUTOPILOT_CRON", "@every 1m"),
		TimeoutSweepCron:         getEnv("TIMEOUT_SWEEP_CRON", "@every 1m"),
		AutopilotSweepMode:       strings.ToLower(getEnv("AUTOPILOT_SWEEP_MODE", "single")),
		WhatsAppURL:              getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:              getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:         getEnv("WHATSAPP_DEVICE_ID", ""),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Servicio Técnico"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		BusinessTimezone:         getEnv("BUSINESS_TIMEZONE", "Europe/Madrid"),
		PhoneDefaultRegion:       strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "ES")),
		StaleLockMaxAge:          mustDuration(getEnv("STALE_LOCK_MAX_AGE", "5m")),
		TrackingPositionTTL:      mustDuration(getEnv("TRACKING_POSITION_TTL", "30m")),
		TrackingFrameInterval:    mustDuration(getEnv("TRACKING_FRAME_INTERVAL", "100ms")),
		TrackingAnimationEnabled: strings.EqualFold(getEnv("TRACKING_ANIMATION_ENABLED", "false"), "true"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServiceJWTSecret == "" {
		return nil, fmt.Errorf("SERVICE_JWT_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SMTPHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}
	if cfg.AutopilotSweepMode != "single" && cfg.AutopilotSweepMode != "batch" {
		return nil, fmt.Errorf("AUTOPILOT_SWEEP_MODE must be single or batch, got %q", cfg.AutopilotSweepMode)
	}

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	cfg.BusinessLocation = loc

	if cfg.StaleLockMaxAge <= 0 {
		cfg.StaleLockMaxAge = 5 * time.Minute
	}
	if cfg.TrackingFrameInterval <= 0 {
		cfg.TrackingFrameInterval = 100 * time.Millisecond
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
	result, err := strconv.Atoi(strings.TrimSpace(value))
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

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
