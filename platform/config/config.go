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
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CRMConfig provides settings for the source CRM client.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIToken() string
	GetCRMLanguageFieldKey() string
	GetCRMTimeout() time.Duration
}

// ERPConfig provides settings for the destination ERP client.
type ERPConfig interface {
	GetERPURL() string
	GetERPDatabase() string
	GetERPUser() string
	GetERPAPIKey() string
	GetERPTimeout() time.Duration
}

// EnrichmentConfig provides settings for the contact enrichment service.
type EnrichmentConfig interface {
	GetEnrichmentBaseURL() string
	GetEnrichmentAPIKey() string
	GetEnrichmentWebhookURL() string
	GetEnrichmentTimeout() time.Duration
}

// WebSearchConfig provides settings for the web search fallback.
type WebSearchConfig interface {
	GetSearchBaseURL() string
	GetSearchAPIKey() string
	IsSearchEnabled() bool
}

// WebhookConfig provides the shared-secret tokens for inbound webhooks.
type WebhookConfig interface {
	GetCRMWebhookToken() string
	GetEnrichmentWebhookToken() string
}

// SyncConfig provides settings for the reconciliation engine and triggers.
type SyncConfig interface {
	GetMappingsFile() string
	GetDownloadStageID() int64
	GetLeadDiscoveryStageID() int64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	CORSAllowAll bool
	CORSOrigins  []string

	CRMBaseURL          string
	CRMAPIToken         string
	CRMLanguageFieldKey string
	CRMTimeout          time.Duration

	ERPURL      string
	ERPDatabase string
	ERPUser     string
	ERPAPIKey   string
	ERPTimeout  time.Duration

	EnrichmentBaseURL      string
	EnrichmentAPIKey       string
	EnrichmentWebhookURL   string
	EnrichmentWebhookToken string
	EnrichmentTimeout      time.Duration

	SearchBaseURL string
	SearchAPIKey  string

	CRMWebhookToken string

	MappingsFile         string
	DownloadStageID      int64
	LeadDiscoveryStageID int64
}

// Load reads configuration from the environment. A .env file, when present,
// is loaded first so local development does not need exported variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		CORSAllowAll: getBoolEnv("CORS_ALLOW_ALL", true),
		CORSOrigins:  splitList(os.Getenv("CORS_ORIGINS")),

		CRMBaseURL:          getEnv("CRM_BASE_URL", "https://api.pipedrive.com/v1"),
		CRMAPIToken:         os.Getenv("CRM_API_TOKEN"),
		CRMLanguageFieldKey: os.Getenv("CRM_LANG_FIELD_KEY"),
		CRMTimeout:          getDurationEnv("CRM_TIMEOUT", 30*time.Second),

		ERPURL:      os.Getenv("ERP_URL"),
		ERPDatabase: os.Getenv("ERP_DB"),
		ERPUser:     os.Getenv("ERP_USER"),
		ERPAPIKey:   os.Getenv("ERP_API_KEY"),
		ERPTimeout:  getDurationEnv("ERP_TIMEOUT", 30*time.Second),

		EnrichmentBaseURL:      getEnv("ENRICHMENT_BASE_URL", "https://api.surfe.com/v2"),
		EnrichmentAPIKey:       os.Getenv("ENRICHMENT_API_KEY"),
		EnrichmentWebhookURL:   os.Getenv("ENRICHMENT_WEBHOOK_URL"),
		EnrichmentWebhookToken: os.Getenv("ENRICHMENT_WEBHOOK_TOKEN"),
		EnrichmentTimeout:      getDurationEnv("ENRICHMENT_TIMEOUT", 30*time.Second),

		SearchBaseURL: getEnv("SEARCH_BASE_URL", "https://api.search.brave.com/res/v1"),
		SearchAPIKey:  os.Getenv("SEARCH_API_KEY"),

		CRMWebhookToken: os.Getenv("CRM_WEBHOOK_TOKEN"),

		MappingsFile:         os.Getenv("SYNC_MAPPINGS_FILE"),
		DownloadStageID:      getInt64Env("DOWNLOAD_STAGE_ID", 37),
		LeadDiscoveryStageID: getInt64Env("LEAD_DISCOVERY_STAGE_ID", 68),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CRMWebhookToken == "" {
		return nil, fmt.Errorf("CRM_WEBHOOK_TOKEN is required")
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

func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

func (c *Config) GetCRMBaseURL() string          { return c.CRMBaseURL }
func (c *Config) GetCRMAPIToken() string         { return c.CRMAPIToken }
func (c *Config) GetCRMLanguageFieldKey() string { return c.CRMLanguageFieldKey }
func (c *Config) GetCRMTimeout() time.Duration   { return c.CRMTimeout }

func (c *Config) GetERPURL() string            { return c.ERPURL }
func (c *Config) GetERPDatabase() string       { return c.ERPDatabase }
func (c *Config) GetERPUser() string           { return c.ERPUser }
func (c *Config) GetERPAPIKey() string         { return c.ERPAPIKey }
func (c *Config) GetERPTimeout() time.Duration { return c.ERPTimeout }

func (c *Config) GetEnrichmentBaseURL() string        { return c.EnrichmentBaseURL }
func (c *Config) GetEnrichmentAPIKey() string         { return c.EnrichmentAPIKey }
func (c *Config) GetEnrichmentWebhookURL() string     { return c.EnrichmentWebhookURL }
func (c *Config) GetEnrichmentTimeout() time.Duration { return c.EnrichmentTimeout }

func (c *Config) GetSearchBaseURL() string { return c.SearchBaseURL }
func (c *Config) GetSearchAPIKey() string  { return c.SearchAPIKey }
func (c *Config) IsSearchEnabled() bool    { return c.SearchAPIKey != "" }

func (c *Config) GetCRMWebhookToken() string        { return c.CRMWebhookToken }
func (c *Config) GetEnrichmentWebhookToken() string { return c.EnrichmentWebhookToken }

func (c *Config) GetMappingsFile() string       { return c.MappingsFile }
func (c *Config) GetDownloadStageID() int64     { return c.DownloadStageID }
func (c *Config) GetLeadDiscoveryStageID() int64 { return c.LeadDiscoveryStageID }

// =============================================================================
// Env Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt64Env(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
