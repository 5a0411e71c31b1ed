package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.TurnStore            = (*InMemoryStore)(nil)
	_ core.SessionBindingLookup = (*InMemoryStore)(nil)
	_ core.CharacterStore       = (*InMemoryStore)(nil)
	_ core.SessionAdmin         = (*InMemoryStore)(nil)

	_ core.TurnStore            = (*GormStore)(nil)
	_ core.SessionBindingLookup = (*GormStore)(nil)
	_ core.CharacterStore       = (*GormStore)(nil)
	_ core.SessionAdmin         = (*GormStore)(nil)
)

func appendPair(t *testing.T, s *InMemoryStore, sid, user, assistant string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AppendTurn(ctx, sid, core.RoleUser, user, nil, ""))
	require.NoError(t, s.AppendTurn(ctx, sid, core.RoleAssistant, assistant, nil, ""))
}

func TestInMemoryStore_LoadRecentReturnsLastTurnsAscending(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	appendPair(t, s, "s1", "a", "A")
	appendPair(t, s, "s1", "b", "B")
	appendPair(t, s, "s1", "c", "C")

	turns, err := s.LoadRecent(ctx, "s1", 4)
	require.NoError(t, err)
	assert.Equal(t, []core.Turn{
		{Role: core.RoleUser, Content: "b"},
		{Role: core.RoleAssistant, Content: "B"},
		{Role: core.RoleUser, Content: "c"},
		{Role: core.RoleAssistant, Content: "C"},
	}, turns)
}

func TestInMemoryStore_AppendTurnUpdatesActivity(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	appendPair(t, s, "s1", "hello", "hi")

	sessions, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.False(t, sessions[0].LastActiveAt.IsZero())
}

func TestInMemoryStore_DeleteSessionCascades(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	appendPair(t, s, "s1", "hello", "hi")

	deleted, err := s.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)

	turns, err := s.LoadRecent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	deleted, err = s.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestInMemoryStore_CharacterLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	created, err := s.CreateCharacter(ctx, core.Character{Name: "Mira", Personality: "curious"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = s.CreateCharacter(ctx, core.Character{Name: "Mira"})
	assert.ErrorIs(t, err, core.ErrCharacterExists)

	byName, err := s.CharacterByName(ctx, "Mira")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	missing, err := s.CharacterByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInMemoryStore_BindCharacter(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	created, err := s.CreateCharacter(ctx, core.Character{Name: "Mira"})
	require.NoError(t, err)

	// Binding creates the session row if it does not exist yet.
	require.NoError(t, s.BindCharacter(ctx, "s1", created.ID))

	bound, err := s.BoundCharacter(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, bound)
	assert.Equal(t, created.ID, *bound)
}

func TestInMemoryStore_RenameSession(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.RenameSession(ctx, "nope", "x"), core.ErrNotFound)

	appendPair(t, s, "s1", "hello", "hi")
	require.NoError(t, s.RenameSession(ctx, "s1", "my chat"))

	sessions, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "my chat", sessions[0].Title)
}
