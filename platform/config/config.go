// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

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
// Tokens are issued by the external identity provider; we only verify them.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	// GetAdminAlertEmail receives low-rating feedback and conversion alerts. Empty disables them.
	GetAdminAlertEmail() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRescoreSweepCron() string
}

// RankingConfig provides settings for the Redis lead ranking.
type RankingConfig interface {
	GetRedisURL() string
	GetRankingKey() string
}

// ScoringConfig provides settings for the lead scoring tables.
type ScoringConfig interface {
	GetScoringTablesPath() string
}

// AssignmentConfig provides settings for the assignment engine.
type AssignmentConfig interface {
	GetAutoAssignOnQuote() bool
	GetAutoAssignMaxContractors() int
	GetAssignmentConcurrency() int
}

// PhoneConfig provides the default region used to parse phone numbers.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	AppBaseURL               string
	AdminAlertEmail          string
	EmailEnabled             bool
	EmailProvider            string
	BrevoAPIKey              string
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	RescoreSweepCron         string
	RankingKey               string
	ScoringTablesPath        string
	AutoAssignOnQuote        bool
	AutoAssignMaxContractors int
	AssignmentConcurrency    int
	PhoneDefaultRegion       string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string      { return c.AppBaseURL }
func (c *Config) GetAdminAlertEmail() string { return c.AdminAlertEmail }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool   { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }
func (c *Config) GetRescoreSweepCron() string { return c.RescoreSweepCron }

// RankingConfig implementation
func (c *Config) GetRankingKey() string { return c.RankingKey }

// ScoringConfig implementation
func (c *Config) GetScoringTablesPath() string { return c.ScoringTablesPath }

// AssignmentConfig implementation
func (c *Config) GetAutoAssignOnQuote() bool       { return c.AutoAssignOnQuote }
func (c *Config) GetAutoAssignMaxContractors() int { return c.AutoAssignMaxContractors }
func (c *Config) GetAssignmentConcurrency() int    { return c.AssignmentConcurrency }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	provider := strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "brevo")))

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		AdminAlertEmail:          strings.TrimSpace(getEnv("ADMIN_ALERT_EMAIL", "")),
		EmailProvider:            provider,
		BrevoAPIKey:              getEnv("BREVO_API_KEY", ""),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "RenoLead"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RescoreSweepCron:         getEnv("RESCORE_SWEEP_CRON", "@every 6h"),
		RankingKey:               getEnv("RANKING_KEY", "leads:priority"),
		ScoringTablesPath:        getEnv("SCORING_TABLES_PATH", ""),
		AutoAssignOnQuote:        strings.EqualFold(getEnv("AUTO_ASSIGN_ON_QUOTE", "false"), "true"),
		AutoAssignMaxContractors: mustInt(getEnv("AUTO_ASSIGN_MAX_CONTRACTORS", "3")),
		AssignmentConcurrency:    mustInt(getEnv("ASSIGNMENT_CONCURRENCY", "8")),
		PhoneDefaultRegion:       strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "US")),
	}

	switch provider {
	case "brevo":
		cfg.EmailEnabled = emailEnabled && cfg.BrevoAPIKey != ""
	case "smtp":
		cfg.EmailEnabled = emailEnabled && cfg.SMTPHost != ""
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be brevo or smtp, got %q", provider)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.AutoAssignMaxContractors < 1 {
		return fmt.Errorf("AUTO_ASSIGN_MAX_CONTRACTORS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
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
