package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"AROUND_ADDR", "METRICS_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS",
		"DEFAULT_GROUP_SIZE", "DRAFT_TTL", "AUTH_ENABLED", "JWT_SIGNING_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 3, cfg.DefaultGroupSize)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
	assert.False(t, cfg.AuthEnabled)
	assert.NotEmpty(t, cfg.JWTSigningKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("AROUND_ADDR", ":7000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("DEFAULT_GROUP_SIZE", "4")
	t.Setenv("DRAFT_TTL", "90m")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("AUTH_ENABLED", "true")

	cfg := FromEnv()

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 4, cfg.DefaultGroupSize)
	assert.Equal(t, 90*time.Minute, cfg.DraftTTL)
	assert.Equal(t, 10, cfg.Redis.PoolSize, "invalid values fall back to the default")
	assert.True(t, cfg.AuthEnabled)
}
