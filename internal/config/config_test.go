package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 2*time.Second, cfg.LockWait)
	assert.Equal(t, 8, cfg.NotifyAttempts)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProdLike())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LOCK_WAIT", "500ms")
	t.Setenv("NOTIFY_BATCH", "10")
	t.Setenv("RATE_LIMIT_RPS", "1.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DEFAULT_LOCALE", "ID")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.LockWait)
	assert.Equal(t, 10, cfg.NotifyBatch)
	assert.Equal(t, 1.5, cfg.RateLimitRPS)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "id", cfg.DefaultLocale)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":     {"LOCK_TTL", "soon"},
		"bad int":          {"NOTIFY_BATCH", "many"},
		"zero attempts":    {"NOTIFY_MAX_ATTEMPTS", "0"},
		"wait exceeds ttl": {"LOCK_WAIT", "30s"},
		"unknown locale":   {"DEFAULT_LOCALE", "fr"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_ProdRejectsDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/roomclean")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "real-secret")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_CALLBACK_TOKEN")

	t.Setenv("GATEWAY_CALLBACK_TOKEN", "real-token")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProdLike())
}
