package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, devSigningKey, cfg.JWTSigningKey)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, 10*time.Minute, cfg.EmailCode.TTL)
	assert.Equal(t, "civic.notifications", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CIVIC_ADDR", ":9090")
	t.Setenv("JWT_SIGNING_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://civic@localhost/civic")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
	t.Setenv("EMAIL_CODE_TTL", "2m")
	t.Setenv("CIVIC_BOOTSTRAP_ADMINS", "3f1c2b7e-5a7d-4c1e-9a34-2d6f0b8e4a11")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.JWTSigningKey)
	assert.False(t, cfg.InMemory())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.EmailCode.TTL)
	assert.Equal(t, []string{"3f1c2b7e-5a7d-4c1e-9a34-2d6f0b8e4a11"}, cfg.BootstrapAdmins)
}

func TestFromEnv_ProductionRequiresKey(t *testing.T) {
	t.Setenv("CIVIC_PRODUCTION", "true")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SIGNING_KEY", devSigningKey)
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_ProductionRequiresSharedStores(t *testing.T) {
	t.Setenv("CIVIC_PRODUCTION", "true")
	t.Setenv("JWT_SIGNING_KEY", "prod-signing-key")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://civic@db/civic")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.InMemory())
}

func TestFromEnv_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "0")
	_, err := FromEnv()
	assert.Error(t, err)
}
