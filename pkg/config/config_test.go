package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/mspbill/pkg/observability"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MSPBILL_POSTGRES_URL", "postgres://localhost/mspbill")
	t.Setenv("MSPBILL_REDIS_URL", "redis://localhost:6379")
	t.Setenv("MSPBILL_SMTP_HOST", "mail.example.com")
	t.Setenv("MSPBILL_SMTP_FROM", "billing@example.com")
}

func TestLoadConfigDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, 20, cfg.Storage.PostgresMaxConns)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, 25, cfg.SMTP.Port)
}

func TestLoadConfigOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_PORT", "9000")
	t.Setenv("MSPBILL_LOG_LEVEL", "debug")
	t.Setenv("MSPBILL_POSTGRES_MAX_CONNS", "50")
	t.Setenv("MSPBILL_POSTGRES_REPLICA_URLS", "postgres://r1/mspbill,postgres://r2/mspbill")
	t.Setenv("MSPBILL_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("MSPBILL_S3_BUCKET", "invoices")
	t.Setenv("MSPBILL_S3_USE_PATH_STYLE", "true")
	t.Setenv("MSPBILL_SMTP_PORT", "587")
	t.Setenv("MSPBILL_SMTP_FROM_NAME", "Acme Billing")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 50, cfg.Storage.PostgresMaxConns)
	assert.Equal(t, []string{"postgres://r1/mspbill", "postgres://r2/mspbill"}, cfg.Storage.PostgresReplicaURLs)
	assert.Equal(t, "http://minio:9000", cfg.Storage.S3Endpoint)
	assert.True(t, cfg.Storage.S3UsePathStyle)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "Acme Billing", cfg.SMTP.FromName)
}

func TestValidateMissingPostgres(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_POSTGRES_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL")
}

func TestValidateCacheRequiresRedis(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_REDIS_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis URL")
}

func TestValidateCacheDisabledSkipsRedis(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_REDIS_URL", "")
	t.Setenv("MSPBILL_CACHE_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Storage.CacheEnabled)
}

func TestValidateSMTPRequired(t *testing.T) {
	validEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.SMTP.From = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from")

	cfg.SMTP.From = "billing@example.com"
	cfg.SMTP.Host = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host")
}

func TestValidateSMTPDisabledSkipsChecks(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_SMTP_DISABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.SMTP.Disabled)

	cfg.SMTP.From = ""
	cfg.SMTP.Host = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidateS3BucketRequiredWithEndpoint(t *testing.T) {
	validEnv(t)
	t.Setenv("MSPBILL_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("MSPBILL_S3_BUCKET", "")

	cfg, err := LoadConfig()
	// DefaultConfig ships a bucket name, so this still validates
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Storage.S3Bucket)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("bogus"))
}
