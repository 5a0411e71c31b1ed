package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 20, cfg.HistoryMaxTurns)
	assert.Equal(t, 72*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, 60*time.Second, cfg.LockTTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HISTORY_MAX_TURNS", "5")
	t.Setenv("HISTORY_TTL_SECONDS", "120")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("MODELS_CURATED", "a, b ,,c")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HistoryMaxTurns)
	assert.Equal(t, 2*time.Minute, cfg.HistoryTTL)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.CuratedModels)
}

func TestFromEnv_RedisURLImpliesRedisBackend(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.CacheBackend)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("HISTORY_MAX_TURNS", "zero")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("HISTORY_MAX_TURNS", "1")
	t.Setenv("CACHE_BACKEND", "redis")
	_, err = FromEnv()
	assert.Error(t, err, "redis backend without REDIS_URL")
}
