package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is at least five refill intervals")
	assert.Equal(t, "ip_route", cfg.KeyStrategy, "client-chosen session ids are not part of the default key")
}

func TestLoadRateLimitConfig_BurstOverridesCapacity(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "3s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 3*time.Second, cfg.RefillInterval)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoadSessionConfig_MinimumTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "5s")
	assert.Equal(t, time.Minute, LoadSessionConfig().TTL)

	t.Setenv("SESSION_TTL", "not-a-duration")
	assert.Equal(t, 30*time.Minute, LoadSessionConfig().TTL)
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "1")
	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.True(t, cfg.TLS)
}

func TestAMQPURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker/")
	assert.Equal(t, "amqp://broker/", AMQPURL())

	t.Setenv("RABBITMQ_URL", "amqp://primary/")
	assert.Equal(t, "amqp://primary/", AMQPURL())
}
