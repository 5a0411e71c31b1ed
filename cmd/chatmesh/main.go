// Command chatmesh runs the chat backend HTTP server. All wiring decisions
// (cache backend, store backend, model provider) come from environment
// variables; see the config package for the full list.
package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hupe1980/chatmesh/cache"
	"github.com/hupe1980/chatmesh/config"
	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/lock"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/model"
	anthropicmodel "github.com/hupe1980/chatmesh/model/anthropic"
	openaimodel "github.com/hupe1980/chatmesh/model/openai"
	"github.com/hupe1980/chatmesh/orchestrator"
	"github.com/hupe1980/chatmesh/persona"
	"github.com/hupe1980/chatmesh/server"
	"github.com/hupe1980/chatmesh/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chatmesh:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	historyCache, sessionLock, err := newCacheAndLock(cfg)
	if err != nil {
		return err
	}

	st, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}
	logger.Info("model provider ready provider=%s model=%s", client.Info().Provider, cfg.Model)

	lister, _ := client.(model.Lister)
	catalog := model.NewCatalog(cfg.CuratedModels, cfg.Model, cfg.VerifyModels, lister)

	orch := orchestrator.New(client, orchestrator.Deps{
		Lock:     sessionLock,
		Cache:    historyCache,
		Store:    st,
		Bindings: st,
		Personas: persona.NewResolver(st),
	}, func(o *orchestrator.Options) {
		o.HistoryLimit = cfg.HistoryMaxTurns * 2
		o.Logger = logger
	})

	srv := server.New(orch, server.Deps{
		Characters: st,
		Sessions:   st,
		Cache:      historyCache,
		Lock:       sessionLock,
		Catalog:    catalog,
	}, func(o *server.Options) {
		o.Logger = logger
	})
	return srv.Run(cfg.Addr)
}

func newLogger(cfg config.Config) *logging.ChatLogger {
	lc := logging.DefaultLoggerConfig()
	lc.Format = cfg.LogFormat
	switch cfg.LogLevel {
	case "debug":
		lc.Level = logging.LogLevelDebug
	case "warn":
		lc.Level = logging.LogLevelWarn
	case "error":
		lc.Level = logging.LogLevelError
	default:
		lc.Level = logging.LogLevelInfo
	}
	return logging.NewLogger(lc).WithComponent("chatmesh")
}

func newCacheAndLock(cfg config.Config) (core.HistoryCache, core.SessionLock, error) {
	cacheOpts := func(o *cache.Options) {
		o.MaxTurns = cfg.HistoryMaxTurns
		o.TTL = cfg.HistoryTTL
	}
	lockOpts := func(o *lock.Options) {
		o.TTL = cfg.LockTTL
	}

	if cfg.CacheBackend == "memory" {
		return cache.NewInMemoryCache(cacheOpts), lock.NewInMemoryLock(lockOpts), nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	return cache.NewRedisCache(client, cacheOpts), lock.NewRedisLock(client, lockOpts), nil
}

// storeDeps is the combined store surface the wiring needs.
type storeDeps interface {
	core.TurnStore
	core.SessionBindingLookup
	core.CharacterStore
	core.SessionAdmin
}

func newStore(cfg config.Config, logger logging.Logger) (storeDeps, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store; history will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	gs := store.NewGormStore(db)
	if cfg.AutoMigrate {
		if err := gs.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}
	return gs, nil
}

func newModelClient(cfg config.Config) (model.Client, error) {
	switch cfg.Provider {
	case "openai":
		return openaimodel.New(func(o *openaimodel.Options) {
			o.Model = cfg.Model
			o.Temperature = cfg.Temperature
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
		}), nil
	case "anthropic":
		return anthropicmodel.New(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
		}), nil
	case "mock":
		return model.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
