// Package chatmesh provides a high-level façade over the turn orchestrator
// and its collaborators (history cache, session lock, durable store, persona
// resolution & logging) enabling rapid construction of conversational
// backends. Most applications interact with this package by:
//  1. Creating a ChatMesh via New() (optionally overriding default in-memory services)
//  2. Running turns synchronously (Chat) or as a fragment stream (ChatStream)
//  3. Managing personas and sessions through the exposed stores
//
// The façade delegates turn execution to orchestrator.Orchestrator while
// keeping setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply the Redis
// cache/lock, the Postgres store, a real model client and a structured
// logger.
package chatmesh

import (
	"context"

	"github.com/hupe1980/chatmesh/cache"
	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/lock"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/model"
	"github.com/hupe1980/chatmesh/orchestrator"
	"github.com/hupe1980/chatmesh/persona"
	"github.com/hupe1980/chatmesh/store"
)

// Options configures the ChatMesh instance.
type Options struct {
	// Model is the generation backend. Defaults to a MockClient, which is
	// only useful for tests and demos.
	Model model.Client

	// HistoryLimit caps the durable-store fallback read on a cache miss.
	HistoryLimit int

	// StreamBufferSize sets the channel buffer size for stream events.
	// Larger buffers decouple upstream consumption from slow readers.
	StreamBufferSize int

	// Services (default to in-memory implementations if not provided).
	Cache core.HistoryCache
	Lock  core.SessionLock
	Store interface {
		core.TurnStore
		core.SessionBindingLookup
		core.CharacterStore
		core.SessionAdmin
	}

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// ChatMesh is the high-level façade aggregating the orchestrator and its
// services.
type ChatMesh struct {
	opts Options
	orch *orchestrator.Orchestrator
}

// New creates a new ChatMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *ChatMesh {
	opts := Options{
		Model:            model.NewMockClient(),
		HistoryLimit:     100,
		StreamBufferSize: 32,
		Cache:            cache.NewInMemoryCache(),
		Lock:             lock.NewInMemoryLock(),
		Store:            store.NewInMemoryStore(),
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(opts.Model, orchestrator.Deps{
		Lock:     opts.Lock,
		Cache:    opts.Cache,
		Store:    opts.Store,
		Bindings: opts.Store,
		Personas: persona.NewResolver(opts.Store),
	}, func(o *orchestrator.Options) {
		o.HistoryLimit = opts.HistoryLimit
		o.StreamBufferSize = opts.StreamBufferSize
		o.Logger = opts.Logger
	})

	return &ChatMesh{opts: opts, orch: orch}
}

// Chat runs one synchronous turn and returns the full reply.
func (m *ChatMesh) Chat(ctx context.Context, req orchestrator.TurnRequest) (*orchestrator.TurnResult, error) {
	return m.orch.Turn(ctx, req)
}

// ChatStream runs one streaming turn, returning the event channel. The
// channel delivers content fragments, at most one terminal error, and a
// final Done event before closing.
func (m *ChatMesh) ChatStream(ctx context.Context, req orchestrator.TurnRequest) (<-chan orchestrator.StreamEvent, error) {
	return m.orch.StreamTurn(ctx, req)
}

// Orchestrator exposes the underlying orchestrator, mainly for wiring the
// HTTP server.
func (m *ChatMesh) Orchestrator() *orchestrator.Orchestrator { return m.orch }

// Characters exposes persona management.
func (m *ChatMesh) Characters() core.CharacterStore { return m.opts.Store }

// Sessions exposes session administration.
func (m *ChatMesh) Sessions() core.SessionAdmin { return m.opts.Store }
