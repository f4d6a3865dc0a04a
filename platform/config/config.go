// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"encoding/hex"
	"fmt"
	"net/http"
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
	GetAuthCookieName() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetMinPasswordLength() int
}

// CookieConfig provides settings for the auth token cookie.
type CookieConfig interface {
	GetAuthCookieName() string
	GetAuthCookieDomain() string
	GetAuthCookiePath() string
	GetAuthCookieSecure() bool
	GetAuthCookieSameSite() http.SameSite
	GetAccessTokenTTL() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailConfigured() bool
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetResetTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetEnv() string
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides Redis/asynq settings for the scheduler and token denylist.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// HousekeepingConfig provides cleanup settings for the scheduler.
type HousekeepingConfig interface {
	GetHousekeepingInterval() time.Duration
	GetOutboxRetention() time.Duration
}

// IntegrationsConfig provides settings for the HubSpot/Slack integrations.
type IntegrationsConfig interface {
	GetHubSpotBaseURL() string
	GetIntegrationTimeout() time.Duration
	GetIntegrationsEncryptionKey() []byte
}

// LeadsConfig provides settings for the leads module.
type LeadsConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	JWTAccessSecret           string
	AccessTokenTTL            time.Duration
	ResetTokenTTL             time.Duration
	MinPasswordLength         int
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	AppBaseURL                string
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	AuthCookieName            string
	AuthCookieDomain          string
	AuthCookiePath            string
	AuthCookieSecure          bool
	AuthCookieSameSite        http.SameSite
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	HubSpotBaseURL            string
	IntegrationTimeout        time.Duration
	IntegrationsEncryptionKey []byte
	PhoneDefaultRegion        string
	HousekeepingInterval      time.Duration
	OutboxRetention           time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }
func (c *Config) GetResetTokenTTL() time.Duration  { return c.ResetTokenTTL }
func (c *Config) GetMinPasswordLength() int        { return c.MinPasswordLength }

// CookieConfig implementation
func (c *Config) GetAuthCookieName() string            { return c.AuthCookieName }
func (c *Config) GetAuthCookieDomain() string          { return c.AuthCookieDomain }
func (c *Config) GetAuthCookiePath() string            { return c.AuthCookiePath }
func (c *Config) GetAuthCookieSecure() bool            { return c.AuthCookieSecure }
func (c *Config) GetAuthCookieSameSite() http.SameSite { return c.AuthCookieSameSite }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// HTTPConfig implementation
func (c *Config) GetEnv() string           { return c.Env }
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// IntegrationsConfig implementation
func (c *Config) GetHubSpotBaseURL() string            { return c.HubSpotBaseURL }
func (c *Config) GetIntegrationTimeout() time.Duration { return c.IntegrationTimeout }
func (c *Config) GetIntegrationsEncryptionKey() []byte { return c.IntegrationsEncryptionKey }

// LeadsConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// HousekeepingConfig implementation
func (c *Config) GetHousekeepingInterval() time.Duration { return c.HousekeepingInterval }
func (c *Config) GetOutboxRetention() time.Duration      { return c.OutboxRetention }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	env := getEnv("APP_ENV", "development")
	cookieSecure := strings.EqualFold(getEnv("AUTH_COOKIE_SECURE", ""), "true")
	if getEnv("AUTH_COOKIE_SECURE", "") == "" {
		cookieSecure = strings.EqualFold(env, "production")
	}

	encryptionKey, err := parseKey(getEnv("INTEGRATIONS_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}

	smtpUser := getEnv("SMTP_USERNAME", "")

	cfg := &Config{
		Env:                       env,
		HTTPAddr:                  getEnv("HTTP_ADDR", ":5000"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		JWTAccessSecret:           getEnv("JWT_SECRET", ""),
		AccessTokenTTL:            mustDuration(getEnv("JWT_TTL", "168h")),
		ResetTokenTTL:             mustDuration(getEnv("RESET_TOKEN_TTL", "1h")),
		MinPasswordLength:         mustInt(getEnv("MIN_PASSWORD_LENGTH", "6")),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                getEnv("APP_BASE_URL", "http://localhost:3000"),
		SMTPHost:                  getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              smtpUser,
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "CRM System"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", smtpUser),
		AuthCookieName:            getEnv("AUTH_COOKIE_NAME", "crm_token"),
		AuthCookieDomain:          getEnv("AUTH_COOKIE_DOMAIN", ""),
		AuthCookiePath:            getEnv("AUTH_COOKIE_PATH", "/"),
		AuthCookieSecure:          cookieSecure,
		AuthCookieSameSite:        parseSameSite(getEnv("AUTH_COOKIE_SAMESITE", "Lax")),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		HubSpotBaseURL:            getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
		IntegrationTimeout:        mustDuration(getEnv("INTEGRATION_TIMEOUT", "10s")),
		IntegrationsEncryptionKey: encryptionKey,
		PhoneDefaultRegion:        getEnv("PHONE_DEFAULT_REGION", "US"),
		HousekeepingInterval:      mustDuration(getEnv("HOUSEKEEPING_INTERVAL", "1h")),
		OutboxRetention:           mustDuration(getEnv("OUTBOX_RETENTION", "168h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.IntegrationTimeout <= 0 || cfg.IntegrationTimeout > 15*time.Second {
		cfg.IntegrationTimeout = 10 * time.Second
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

// parseKey decodes a hex-encoded 32-byte AES key. Empty means encryption is off.
func parseKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("INTEGRATIONS_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("INTEGRATIONS_ENCRYPTION_KEY must decode to 32 bytes")
	}
	return key, nil
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

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
