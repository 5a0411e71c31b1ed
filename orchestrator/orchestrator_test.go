package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/cache"
	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/lock"
	"github.com/hupe1980/chatmesh/model"
	"github.com/hupe1980/chatmesh/persona"
	"github.com/hupe1980/chatmesh/store"
)

var _ model.Client = (*captureClient)(nil)

// captureClient records the last request so tests can inspect the assembled
// message list.
type captureClient struct {
	*model.MockClient
	lastReq model.Request
}

func (c *captureClient) Complete(ctx context.Context, req model.Request) (string, error) {
	c.lastReq = req
	return c.MockClient.Complete(ctx, req)
}

func (c *captureClient) CompleteStream(ctx context.Context, req model.Request) (<-chan string, <-chan error) {
	c.lastReq = req
	return c.MockClient.CompleteStream(ctx, req)
}

type fixture struct {
	orch   *Orchestrator
	client *captureClient
	lock   *lock.InMemoryLock
	cache  *cache.InMemoryCache
	store  *store.InMemoryStore
}

func newFixture() *fixture {
	client := &captureClient{MockClient: model.NewMockClient()}
	l := lock.NewInMemoryLock()
	c := cache.NewInMemoryCache()
	s := store.NewInMemoryStore()
	orch := New(client, Deps{
		Lock:     l,
		Cache:    c,
		Store:    s,
		Bindings: s,
		Personas: persona.NewResolver(s),
	})
	return &fixture{orch: orch, client: client, lock: l, cache: c, store: s}
}

func drain(t *testing.T, events <-chan StreamEvent) (content string, errs []error, doneLast bool) {
	t.Helper()
	var sawDone bool
	for ev := range events {
		require.False(t, sawDone, "event after done marker")
		switch {
		case ev.Done:
			sawDone = true
		case ev.Err != nil:
			errs = append(errs, ev.Err)
		default:
			content += ev.Content
		}
	}
	return content, errs, sawDone
}

func TestTurn_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.client.AddResponse("hello", "hi there")

	res, err := f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Reply)

	history, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.Turn{Role: core.RoleUser, Content: "hello"}, history[0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "hi there"}, history[1])

	stored, err := f.store.LoadRecent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, history, stored)

	// Lock must be free again.
	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTurn_MissingSessionID(t *testing.T) {
	f := newFixture()
	_, err := f.orch.Turn(context.Background(), TurnRequest{Message: "hello"})
	assert.ErrorIs(t, err, core.ErrSessionRequired)

	_, err = f.orch.StreamTurn(context.Background(), TurnRequest{SessionID: "  ", Message: "hello"})
	assert.ErrorIs(t, err, core.ErrSessionRequired)
}

func TestTurn_ConflictHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	assert.ErrorIs(t, err, core.ErrTurnInFlight)

	history, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
	stored, err := f.store.LoadRecent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// The rejected turn must not have released the conflicting holder's lock.
	ok, err = f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTurn_UpstreamFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.client.AddResponse("hello", "hi there")
	_, err := f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)
	before, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)

	f.client.Err = errors.New("upstream exploded")
	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "again"})
	require.ErrorIs(t, err, core.ErrUpstream)

	after, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	stored, err := f.store.LoadRecent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, before, stored)

	// Failure path still releases the lock.
	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTurn_CacheMissFallsBackToStoreWithoutRepopulating(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.store.AppendTurn(ctx, "s1", core.RoleUser, "old question", nil, ""))
	require.NoError(t, f.store.AppendTurn(ctx, "s1", core.RoleAssistant, "old answer", nil, ""))
	f.client.AddResponse("hello", "hi there")

	_, err := f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	// The fallback history made it into the prompt.
	msgs := f.client.lastReq.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Equal(t, "old question", msgs[1].Content)
	assert.Equal(t, "old answer", msgs[2].Content)
	assert.Equal(t, "hello", msgs[3].Content)

	// The cache holds only the new pair: the fallback read was not written
	// back.
	history, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
}

func TestTurn_UsesBoundPersona(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	char, err := f.store.CreateCharacter(ctx, core.Character{Name: "Mira", Background: "a wandering cartographer"})
	require.NoError(t, err)
	require.NoError(t, f.store.BindCharacter(ctx, "s1", char.ID))
	f.client.AddResponse("hello", "hi there")

	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	require.NotEmpty(t, f.client.lastReq.Messages)
	system := f.client.lastReq.Messages[0]
	assert.Equal(t, core.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Your name: Mira")
}

func TestTurn_ExplicitCharacterOverridesBinding(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	bound, err := f.store.CreateCharacter(ctx, core.Character{Name: "Mira"})
	require.NoError(t, err)
	_, err = f.store.CreateCharacter(ctx, core.Character{Name: "Rook"})
	require.NoError(t, err)
	require.NoError(t, f.store.BindCharacter(ctx, "s1", bound.ID))

	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello", CharacterName: "Rook"})
	require.NoError(t, err)
	assert.Contains(t, f.client.lastReq.Messages[0].Content, "Your name: Rook")
}

func TestTurn_ModelOverridePassedThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello", Model: "gpt-oss-120b"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-oss-120b", f.client.lastReq.Model)

	// Swagger placeholder collapses to the adapter default.
	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "hello", Model: "string"})
	require.NoError(t, err)
	assert.Empty(t, f.client.lastReq.Model)
}

func TestStreamTurn_FragmentsThenDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.client.AddResponse("hello", "hi there")

	events, err := f.orch.StreamTurn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	content, errs, done := drain(t, events)
	assert.Empty(t, errs)
	assert.True(t, done)
	assert.Equal(t, "hi there", content)

	// Full reply persisted before the channel closed.
	history, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[1].Content)

	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStreamTurn_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	events, err := f.orch.StreamTurn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	assert.ErrorIs(t, err, core.ErrTurnInFlight)
	assert.Nil(t, events)
}

func TestStreamTurn_UpstreamFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.client.AddResponse("hello", "hi there")
	f.client.Err = errors.New("connection reset")
	f.client.FragmentsBeforeErr = 2

	events, err := f.orch.StreamTurn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	content, errs, done := drain(t, events)
	assert.Equal(t, "hi", content)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], core.ErrUpstream)
	assert.True(t, done)

	// Partial output is never persisted.
	history, err := f.cache.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
	stored, err := f.store.LoadRecent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, stored)

	ok, err := f.lock.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStreamTurn_SerializesSameSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.client.AddResponse("hello", "hi there")
	// Unbuffered events keep the stream goroutine blocked, and the lock
	// held, until we drain.
	orch := New(f.client, Deps{
		Lock:     f.lock,
		Cache:    f.cache,
		Store:    f.store,
		Bindings: f.store,
		Personas: persona.NewResolver(f.store),
	}, func(o *Options) { o.StreamBufferSize = 0 })

	events, err := orch.StreamTurn(ctx, TurnRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	// While the stream is live the session rejects a second turn; other
	// sessions are unaffected.
	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s1", Message: "again"})
	assert.ErrorIs(t, err, core.ErrTurnInFlight)
	_, err = f.orch.Turn(ctx, TurnRequest{SessionID: "s2", Message: "hello"})
	assert.NoError(t, err)

	_, _, done := drain(t, events)
	assert.True(t, done)
}
