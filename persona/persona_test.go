package persona

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/store"
)

var _ core.PersonaResolver = (*Resolver)(nil)

func TestSystemPrompt_NilCharacterFallsBack(t *testing.T) {
	assert.Equal(t, FallbackPrompt, SystemPrompt(nil))
}

func TestSystemPrompt_DeterministicAttributeOrder(t *testing.T) {
	c := &core.Character{
		Name:         "Mira",
		Background:   "a wandering cartographer",
		Personality:  "curious, dry-humored",
		Skills:       "map-making, riddles",
		CurrentStyle: "playful",
	}
	prompt := SystemPrompt(c)
	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Your name: Mira", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Background: "))
	assert.True(t, strings.HasPrefix(lines[2], "Personality: "))
	assert.True(t, strings.HasPrefix(lines[3], "Skills: "))
	assert.True(t, strings.HasPrefix(lines[4], "Current conversation style: "))
}

func TestSystemPrompt_SkipsEmptyAttributes(t *testing.T) {
	c := &core.Character{Name: "Mira", Skills: "riddles"}
	prompt := SystemPrompt(c)
	assert.NotContains(t, prompt, "Background:")
	assert.NotContains(t, prompt, "Personality:")
	assert.Contains(t, prompt, "Skills: riddles")
}

func TestResolver_PrefersIDOverName(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	byID, err := s.CreateCharacter(ctx, core.Character{Name: "Mira"})
	require.NoError(t, err)
	_, err = s.CreateCharacter(ctx, core.Character{Name: "Rook"})
	require.NoError(t, err)

	r := NewResolver(s)
	resolved, err := r.Resolve(ctx, &byID.ID, "Rook")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "Mira", resolved.Name)
}

func TestResolver_NoneResolvable(t *testing.T) {
	r := NewResolver(store.NewInMemoryStore())
	resolved, err := r.Resolve(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
