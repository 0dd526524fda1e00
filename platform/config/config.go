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

// SchedulerConfig provides settings for the asynq worker and its clients.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CallQueueConfig provides settings for the call queue pass.
type CallQueueConfig interface {
	GetCallQueuePassInterval() time.Duration
}

// QdrantConfig provides settings for the Qdrant vector database.
type QdrantConfig interface {
	GetQdrantURL() string
	GetQdrantAPIKey() string
	GetQdrantCollection() string
	IsQdrantEnabled() bool
}

// EmbeddingConfig provides settings for the embedding API service.
type EmbeddingConfig interface {
	GetEmbeddingAPIURL() string
	GetEmbeddingAPIKey() string
	IsEmbeddingEnabled() bool
}

// GenAIConfig provides settings for the Gemini generation client.
type GenAIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetGenerationTimeout() time.Duration
}

// EmailConfig provides settings for handoff notification email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetHandoffInbox() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketExports() string
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
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	CallQueuePassInterval time.Duration
	QdrantURL             string
	QdrantAPIKey          string
	QdrantCollection      string
	EmbeddingAPIURL       string
	EmbeddingAPIKey       string
	GeminiAPIKey          string
	GeminiModel           string
	GenerationTimeout     time.Duration
	RetrievalTimeout      time.Duration
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromAddress      string
	HandoffInbox          string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketExports    string
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

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// CallQueueConfig implementation
func (c *Config) GetCallQueuePassInterval() time.Duration { return c.CallQueuePassInterval }

// QdrantConfig implementation
func (c *Config) GetQdrantURL() string        { return c.QdrantURL }
func (c *Config) GetQdrantAPIKey() string     { return c.QdrantAPIKey }
func (c *Config) GetQdrantCollection() string { return c.QdrantCollection }
func (c *Config) IsQdrantEnabled() bool       { return c.QdrantURL != "" }

// EmbeddingConfig implementation
func (c *Config) GetEmbeddingAPIURL() string { return c.EmbeddingAPIURL }
func (c *Config) GetEmbeddingAPIKey() string { return c.EmbeddingAPIKey }
func (c *Config) IsEmbeddingEnabled() bool   { return c.EmbeddingAPIURL != "" }

// GenAIConfig implementation
func (c *Config) GetGeminiAPIKey() string             { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string              { return c.GeminiModel }
func (c *Config) GetGenerationTimeout() time.Duration { return c.GenerationTimeout }
func (c *Config) GetRetrievalTimeout() time.Duration  { return c.RetrievalTimeout }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetHandoffInbox() string     { return c.HandoffInbox }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketExports() string { return c.MinioBucketExports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CallQueuePassInterval: mustDuration(getEnv("CALL_QUEUE_PASS_INTERVAL", "60s")),
		QdrantURL:             getEnv("QDRANT_URL", ""),
		QdrantAPIKey:          getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:      getEnv("QDRANT_COLLECTION", "course_knowledge"),
		EmbeddingAPIURL:       getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey:       getEnv("EMBEDDING_API_KEY", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GenerationTimeout:     mustDuration(getEnv("GENERATION_TIMEOUT", "30s")),
		RetrievalTimeout:      mustDuration(getEnv("RETRIEVAL_TIMEOUT", "10s")),
		EmailEnabled:          emailEnabled,
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		HandoffInbox:          getEnv("HANDOFF_INBOX", ""),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketExports:    getEnv("MINIO_BUCKET_EXPORTS", "lead-exports"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "" || cfg.HandoffInbox == "") {
		return nil, fmt.Errorf("SMTP_HOST, EMAIL_FROM_ADDRESS and HANDOFF_INBOX are required when EMAIL_ENABLED is true")
	}
	if cfg.CallQueuePassInterval < time.Second {
		return nil, fmt.Errorf("CALL_QUEUE_PASS_INTERVAL must be at least 1s")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
