package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/model"
	"github.com/hupe1980/chatmesh/persona"
)

// Deps bundles the collaborators a turn depends on. All of them are shared,
// long-lived and safe for concurrent use across sessions; no additional
// in-process locking is layered on top of the session lock.
type Deps struct {
	Lock     core.SessionLock
	Cache    core.HistoryCache
	Store    core.TurnStore
	Bindings core.SessionBindingLookup
	Personas core.PersonaResolver
}

// Options holds configuration overrides passed to New().
type Options struct {
	// HistoryLimit caps the fallback read from the durable store on a
	// cache miss.
	HistoryLimit int
	// StreamBufferSize sets channel buffering for stream events.
	StreamBufferSize int
	// Logger receives turn lifecycle logs.
	Logger logging.Logger
}

// Orchestrator drives the turn lifecycle. Public methods are safe for
// concurrent use.
type Orchestrator struct {
	client model.Client
	deps   Deps

	historyLimit int
	streamBuffer int
	logger       logging.Logger
}

// New constructs an Orchestrator with optional overrides.
func New(client model.Client, deps Deps, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		HistoryLimit:     100,
		StreamBufferSize: 32,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		client:       client,
		deps:         deps,
		historyLimit: opts.HistoryLimit,
		streamBuffer: opts.StreamBufferSize,
		logger:       opts.Logger,
	}
}

// TurnRequest is the input of one turn.
type TurnRequest struct {
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
	CharacterID   *int64 `json:"character_id,omitempty"`
	CharacterName string `json:"character_name,omitempty"`
	Model         string `json:"model,omitempty"`
}

// TurnResult is the output of a synchronous turn.
type TurnResult struct {
	Reply string `json:"reply"`
}

// turnMetricsLogger is implemented by logging.ChatLogger; plain Loggers
// just skip the aggregate metric.
type turnMetricsLogger interface {
	LogTurn(sessionID string, dur time.Duration, streamed, success bool, err error)
}

// prepared carries the state assembled between lock acquisition and the
// model call.
type prepared struct {
	history       []core.Turn
	characterID   *int64
	characterName string
	systemPrompt  string
}

// Turn runs one synchronous turn: lock, history, model, persist, release.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return nil, core.ErrSessionRequired
	}

	runID := uuid.NewString()
	start := time.Now()

	ok, err := o.deps.Lock.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		// Another turn is in flight: reject without side effects.
		return nil, core.ErrTurnInFlight
	}
	// Release must run on every exit path, including persistence failures,
	// and must not be skipped by a cancelled request context.
	defer o.release(context.WithoutCancel(ctx), req.SessionID)

	result, err := o.runTurn(ctx, req, runID)
	if ml, ok := o.logger.(turnMetricsLogger); ok {
		ml.LogTurn(req.SessionID, time.Since(start), false, err == nil, err)
	}
	return result, err
}

func (o *Orchestrator) runTurn(ctx context.Context, req TurnRequest, runID string) (*TurnResult, error) {
	prep, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("turn started session_id=%s run_id=%s history_len=%d", req.SessionID, runID, len(prep.history))

	reply, err := o.client.Complete(ctx, o.modelRequest(req, prep))
	if err != nil {
		// No persistence occurs: cache and store remain exactly as before
		// the turn.
		return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
	}

	if err := o.persistPair(ctx, req, prep, reply); err != nil {
		return nil, err
	}
	return &TurnResult{Reply: reply}, nil
}

// prepare loads the effective history and resolves the persona binding.
func (o *Orchestrator) prepare(ctx context.Context, req TurnRequest) (*prepared, error) {
	history, err := o.deps.Cache.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("read history cache: %w", err)
	}
	if len(history) == 0 {
		// Cache miss falls back to the durable store. The result is
		// deliberately not written back to the cache; see package doc.
		history, err = o.deps.Store.LoadRecent(ctx, req.SessionID, o.historyLimit)
		if err != nil {
			return nil, fmt.Errorf("load history from store: %w", err)
		}
	}

	characterID := req.CharacterID
	characterName := req.CharacterName
	if characterID == nil && characterName == "" {
		bound, err := o.deps.Bindings.BoundCharacter(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("resolve session binding: %w", err)
		}
		characterID = bound
	}

	char, err := o.deps.Personas.Resolve(ctx, characterID, characterName)
	if err != nil {
		return nil, fmt.Errorf("resolve persona: %w", err)
	}
	if char != nil {
		id := char.ID
		characterID = &id
		characterName = char.Name
	}

	return &prepared{
		history:       history,
		characterID:   characterID,
		characterName: characterName,
		systemPrompt:  persona.SystemPrompt(char),
	}, nil
}

// modelRequest assembles [system] + history + [current user message].
func (o *Orchestrator) modelRequest(req TurnRequest, prep *prepared) model.Request {
	messages := make([]model.Message, 0, len(prep.history)+2)
	messages = append(messages, model.Message{Role: core.RoleSystem, Content: prep.systemPrompt})
	for _, t := range prep.history {
		messages = append(messages, model.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, model.Message{Role: core.RoleUser, Content: req.Message})
	return model.Request{Model: chooseModel(req.Model), Messages: messages}
}

// persistPair writes the completed turn to both systems. They share no
// transaction: a failure in one after the other succeeded leaves them
// inconsistent. Known limitation, surfaced via core.ErrPersistence.
func (o *Orchestrator) persistPair(ctx context.Context, req TurnRequest, prep *prepared, reply string) error {
	if err := o.deps.Cache.AppendPair(ctx, req.SessionID, req.Message, reply); err != nil {
		return fmt.Errorf("%w: cache append: %v", core.ErrPersistence, err)
	}
	if err := o.deps.Store.AppendTurn(ctx, req.SessionID, core.RoleUser, req.Message, prep.characterID, prep.characterName); err != nil {
		return fmt.Errorf("%w: store user turn: %v", core.ErrPersistence, err)
	}
	if err := o.deps.Store.AppendTurn(ctx, req.SessionID, core.RoleAssistant, reply, prep.characterID, prep.characterName); err != nil {
		return fmt.Errorf("%w: store assistant turn: %v", core.ErrPersistence, err)
	}
	return nil
}

func (o *Orchestrator) release(ctx context.Context, sessionID string) {
	if err := o.deps.Lock.Release(ctx, sessionID); err != nil {
		o.logger.Warn("failed to release session lock session_id=%s: %v", sessionID, err)
	}
}

// chooseModel cleans client-supplied model overrides; the literal "string"
// is the Swagger placeholder some frontends send.
func chooseModel(requested string) string {
	val := strings.TrimSpace(requested)
	if val == "" || strings.EqualFold(val, "string") {
		return ""
	}
	return val
}
