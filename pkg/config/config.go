// Package config loads application configuration from MSPBILL_*
// environment variables with validated defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/mspbill/pkg/email"
	"github.com/platinummonkey/mspbill/pkg/observability"
	"github.com/platinummonkey/mspbill/pkg/storage"
	"github.com/platinummonkey/mspbill/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// SMTP configuration for invoice delivery
	SMTP email.SMTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// RateLimitPerMinute is the per-tenant request budget. Zero
	// disables rate limiting; it also requires Redis.
	RateLimitPerMinute int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		SMTP:          loadSMTPConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MSPBILL_HOST", "0.0.0.0"),
		Port:            getEnv("MSPBILL_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MSPBILL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MSPBILL_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MSPBILL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MSPBILL_SHUTDOWN_TIMEOUT", 30*time.Second),

		RateLimitPerMinute: getEnvInt("MSPBILL_RATE_LIMIT_PER_MINUTE", 120),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	if pgURL := getEnv("MSPBILL_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if replicaURLs := getEnv("MSPBILL_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = postgres.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("MSPBILL_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("MSPBILL_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("MSPBILL_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// S3 config
	if s3Endpoint := getEnv("MSPBILL_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("MSPBILL_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("MSPBILL_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("MSPBILL_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("MSPBILL_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("MSPBILL_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	// Redis config
	if redisURL := getEnv("MSPBILL_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("MSPBILL_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("MSPBILL_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("MSPBILL_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("MSPBILL_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// Cache config
	if cacheEnabled := getEnv("MSPBILL_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}

	return cfg
}

// loadSMTPConfig loads SMTP configuration from environment
func loadSMTPConfig() email.SMTPConfig {
	cfg := email.DefaultSMTPConfig()

	cfg.Disabled = getEnvBool("MSPBILL_SMTP_DISABLED", false)
	if host := getEnv("MSPBILL_SMTP_HOST", ""); host != "" {
		cfg.Host = host
	}
	if port := getEnvInt("MSPBILL_SMTP_PORT", 0); port > 0 {
		cfg.Port = port
	}
	if username := getEnv("MSPBILL_SMTP_USERNAME", ""); username != "" {
		cfg.Username = username
	}
	if password := getEnv("MSPBILL_SMTP_PASSWORD", ""); password != "" {
		cfg.Password = password
	}
	if from := getEnv("MSPBILL_SMTP_FROM", ""); from != "" {
		cfg.From = from
	}
	if fromName := getEnv("MSPBILL_SMTP_FROM_NAME", ""); fromName != "" {
		cfg.FromName = fromName
	}
	cfg.UseTLS = getEnvBool("MSPBILL_SMTP_STARTTLS", cfg.UseTLS)
	cfg.UseImplicit = getEnvBool("MSPBILL_SMTP_IMPLICIT_TLS", cfg.UseImplicit)
	cfg.SkipVerify = getEnvBool("MSPBILL_SMTP_SKIP_VERIFY", cfg.SkipVerify)
	if timeout := getEnvDuration("MSPBILL_SMTP_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("MSPBILL_LOG_LEVEL", "info")),
		OTelEnabled:        getEnvBool("MSPBILL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MSPBILL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MSPBILL_OTEL_SERVICE_NAME", "mspbill"),
		OTelServiceVersion: getEnv("MSPBILL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MSPBILL_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Storage.S3Endpoint != "" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when an S3 endpoint is configured")
	}

	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when caching is enabled")
	}

	if !c.SMTP.Disabled {
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("SMTP from address is required")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
