// Package config loads the process configuration from environment
// variables, with defaults suited to local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// CacheBackend selects the history cache and session lock backend:
	// "redis" or "memory". No runtime feature detection happens; the
	// configured backend must be reachable.
	CacheBackend string
	// RedisURL is a redis:// connection URL, used when CacheBackend is
	// "redis".
	RedisURL string

	// DatabaseURL is a postgres DSN. Empty selects the in-memory store.
	DatabaseURL string
	// AutoMigrate creates the schema on startup when true.
	AutoMigrate bool

	// Provider selects the model adapter: "openai" or "anthropic".
	Provider string
	// BaseURL overrides the provider's API endpoint, for OpenAI-compatible
	// proxies.
	BaseURL string
	// APIKey authenticates against the provider.
	APIKey string
	// Model is the default model identifier.
	Model string
	// Temperature is the default sampling temperature.
	Temperature float64

	// HistoryMaxTurns bounds the cached history, counted in
	// user/assistant pairs.
	HistoryMaxTurns int
	// HistoryTTL is the sliding cache expiry.
	HistoryTTL time.Duration
	// LockTTL is the session lock expiry.
	LockTTL time.Duration

	// CuratedModels is the model list served when the catalog cannot or
	// should not ask the upstream.
	CuratedModels []string
	// VerifyModels filters CuratedModels against the upstream's model
	// list when true.
	VerifyModels bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is json or text.
	LogFormat string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8000",
		CacheBackend:    "memory",
		AutoMigrate:     true,
		Provider:        "openai",
		Model:           "gpt-oss-120b",
		Temperature:     0.8,
		HistoryMaxTurns: 20,
		HistoryTTL:      72 * time.Hour,
		LockTTL:         60 * time.Second,
		CuratedModels:   []string{"gpt-oss-120b", "deepseek-v3", "qwen-max"},
		VerifyModels:    false,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// FromEnv overlays environment variables onto the defaults. Malformed
// numeric or boolean values are reported rather than silently ignored.
func FromEnv() (Config, error) {
	cfg := Default()
	var err error

	strVar(&cfg.Addr, "ADDR")
	strVar(&cfg.CacheBackend, "CACHE_BACKEND")
	strVar(&cfg.RedisURL, "REDIS_URL")
	strVar(&cfg.DatabaseURL, "DATABASE_URL")
	strVar(&cfg.Provider, "LLM_PROVIDER")
	strVar(&cfg.BaseURL, "LLM_BASE_URL")
	strVar(&cfg.APIKey, "LLM_API_KEY")
	strVar(&cfg.Model, "LLM_MODEL")
	strVar(&cfg.LogLevel, "LOG_LEVEL")
	strVar(&cfg.LogFormat, "LOG_FORMAT")

	if err = floatVar(&cfg.Temperature, "LLM_TEMPERATURE"); err != nil {
		return cfg, err
	}
	if err = intVar(&cfg.HistoryMaxTurns, "HISTORY_MAX_TURNS"); err != nil {
		return cfg, err
	}
	if err = secondsVar(&cfg.HistoryTTL, "HISTORY_TTL_SECONDS"); err != nil {
		return cfg, err
	}
	if err = secondsVar(&cfg.LockTTL, "LOCK_TTL_SECONDS"); err != nil {
		return cfg, err
	}
	if err = boolVar(&cfg.AutoMigrate, "DB_AUTO_MIGRATE"); err != nil {
		return cfg, err
	}
	if err = boolVar(&cfg.VerifyModels, "VERIFY_MODELS"); err != nil {
		return cfg, err
	}

	if raw := os.Getenv("MODELS_CURATED"); raw != "" {
		cfg.CuratedModels = splitList(raw)
	}

	// REDIS_URL alone is enough to opt into the Redis backend.
	if os.Getenv("CACHE_BACKEND") == "" && cfg.RedisURL != "" {
		cfg.CacheBackend = "redis"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.CacheBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("config: CACHE_BACKEND=redis requires REDIS_URL")
	}
	switch c.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.Provider)
	}
	if c.HistoryMaxTurns <= 0 {
		return fmt.Errorf("config: HISTORY_MAX_TURNS must be positive")
	}
	return nil
}

func strVar(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func floatVar(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func boolVar(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func secondsVar(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
