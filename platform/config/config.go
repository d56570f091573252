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

// CronConfig provides the shared secret for operator/cron endpoints.
type CronConfig interface {
	GetCronSecret() string
}

// WebhookConfig provides the shared key for the Google lead form webhook.
type WebhookConfig interface {
	GetGoogleLeadWebhookKey() string
}

// EmailConfig provides settings for the SMTP transport.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailHost() string
	GetEmailPort() int
	GetEmailSecure() bool
	GetEmailUser() string
	GetEmailPass() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailTo() string
}

// NotificationConfig provides recipients for lead and ops emails.
type NotificationConfig interface {
	GetEmailTo() string
	GetOpsAlertEmail() string
}

// CRMConfig provides settings for the outbound CRM provider.
type CRMConfig interface {
	GetCRMProvider() string
	GetLoftyAPIBase() string
	GetLoftyAPIKey() string
	GetLoftyAuthHeader() string
	GetLoftyAuthScheme() string
	GetLoftyLeadsPath() string
	GetLoftyTestMode() bool
	GetCRMTimeout() time.Duration
}

// RoutingConfig provides the agent routing table sources.
type RoutingConfig interface {
	GetAgentRoutingJSON() string
	GetAgentRoutingFile() string
	GetRoundRobinBackend() string
}

// RedisConfig provides the shared redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetFollowupSweepInterval() time.Duration
}

// MinIOConfig provides settings for the dead-letter archive bucket.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketDeadLetters() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	CronSecret            string
	GoogleLeadWebhookKey  string
	EmailEnabled          bool
	EmailHost             string
	EmailPort             int
	EmailSecure           bool
	EmailUser             string
	EmailPass             string
	EmailFromName         string
	EmailFromAddress      string
	EmailTo               string
	OpsAlertEmail         string
	CRMProvider           string
	LoftyAPIBase          string
	LoftyAPIKey           string
	LoftyAuthHeader       string
	LoftyAuthScheme       string
	LoftyLeadsPath        string
	LoftyTestMode         bool
	CRMTimeout            time.Duration
	AgentRoutingJSON      string
	AgentRoutingFile      string
	RoundRobinBackend     string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	FollowupSweepInterval time.Duration
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketDeadLetter string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// CronConfig implementation
func (c *Config) GetCronSecret() string { return c.CronSecret }

// WebhookConfig implementation
func (c *Config) GetGoogleLeadWebhookKey() string { return c.GoogleLeadWebhookKey }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailHost() string        { return c.EmailHost }
func (c *Config) GetEmailPort() int           { return c.EmailPort }
func (c *Config) GetEmailSecure() bool        { return c.EmailSecure }
func (c *Config) GetEmailUser() string        { return c.EmailUser }
func (c *Config) GetEmailPass() string        { return c.EmailPass }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetEmailTo() string          { return c.EmailTo }

// NotificationConfig implementation
func (c *Config) GetOpsAlertEmail() string { return c.OpsAlertEmail }

// CRMConfig implementation
func (c *Config) GetCRMProvider() string       { return c.CRMProvider }
func (c *Config) GetLoftyAPIBase() string      { return c.LoftyAPIBase }
func (c *Config) GetLoftyAPIKey() string       { return c.LoftyAPIKey }
func (c *Config) GetLoftyAuthHeader() string   { return c.LoftyAuthHeader }
func (c *Config) GetLoftyAuthScheme() string   { return c.LoftyAuthScheme }
func (c *Config) GetLoftyLeadsPath() string    { return c.LoftyLeadsPath }
func (c *Config) GetLoftyTestMode() bool       { return c.LoftyTestMode }
func (c *Config) GetCRMTimeout() time.Duration { return c.CRMTimeout }

// RoutingConfig implementation
func (c *Config) GetAgentRoutingJSON() string  { return c.AgentRoutingJSON }
func (c *Config) GetAgentRoutingFile() string  { return c.AgentRoutingFile }
func (c *Config) GetRoundRobinBackend() string { return c.RoundRobinBackend }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                     { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool               { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string               { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                { return c.AsynqConcurrency }
func (c *Config) GetFollowupSweepInterval() time.Duration { return c.FollowupSweepInterval }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketDeadLetters() string { return c.MinioBucketDeadLetter }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailUser := getEnv("EMAIL_USER", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		CronSecret:            getEnv("CRON_SECRET", ""),
		GoogleLeadWebhookKey:  getEnv("GOOGLE_LEAD_WEBHOOK_KEY", ""),
		EmailEnabled:          emailEnabled,
		EmailHost:             getEnv("EMAIL_HOST", ""),
		EmailPort:             mustInt(getEnv("EMAIL_PORT", "465"), 465),
		EmailSecure:           getEnv("EMAIL_SECURE", "true") == "true",
		EmailUser:             emailUser,
		EmailPass:             getEnv("EMAIL_PASS", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Crown Coastal Homes"),
		EmailFromAddress:      getEnv("EMAIL_FROM", emailUser),
		EmailTo:               getEnv("EMAIL_TO", "leads@crowncoastal.com"),
		OpsAlertEmail:         getEnv("OPS_ALERT_EMAIL", ""),
		CRMProvider:           strings.ToLower(getEnv("CRM_PROVIDER", "lofty")),
		LoftyAPIBase:          getEnv("LOFTY_API_BASE", "https://api.lofty.com/v1"),
		LoftyAPIKey:           getEnv("LOFTY_API_KEY", ""),
		LoftyAuthHeader:       getEnv("LOFTY_AUTH_HEADER", "Authorization"),
		LoftyAuthScheme:       getEnv("LOFTY_AUTH_SCHEME", "Bearer"),
		LoftyLeadsPath:        getEnv("LOFTY_LEADS_PATH", "/leads"),
		LoftyTestMode:         getEnv("LOFTY_TEST_MODE", "false") == "true",
		CRMTimeout:            mustDuration(getEnv("CRM_TIMEOUT", "15s"), 15*time.Second),
		AgentRoutingJSON:      getEnv("AGENT_ROUTING_JSON", ""),
		AgentRoutingFile:      getEnv("AGENT_ROUTING_FILE", ""),
		RoundRobinBackend:     strings.ToLower(getEnv("ROUND_ROBIN_BACKEND", "memory")),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "5"), 5),
		FollowupSweepInterval: mustDuration(getEnv("FOLLOWUP_SWEEP_INTERVAL", "5m"), 5*time.Minute),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketDeadLetter: getEnv("MINIO_BUCKET_DEAD_LETTERS", "crm-dead-letters"),
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
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	switch c.CRMProvider {
	case "lofty", "none":
	default:
		return fmt.Errorf("CRM_PROVIDER %q is not supported", c.CRMProvider)
	}
	switch c.RoundRobinBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ROUND_ROBIN_BACKEND %q is not supported", c.RoundRobinBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || result <= 0 {
		return fallback
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
