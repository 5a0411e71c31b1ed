// Package persona resolves character definitions and renders them into the
// system prompt that opens every model invocation.
package persona

import (
	"context"
	"strings"

	"github.com/hupe1980/chatmesh/core"
)

// FallbackPrompt is the generic assistant persona used when no character is
// resolvable. Sessions without a bound character still get to chat.
const FallbackPrompt = "You are a helpful assistant."

const stayInCharacter = "Stay in character and keep your tone consistent with this persona across the whole conversation."

// Resolver looks personas up in the character store, by id first, then by
// name. Implements core.PersonaResolver.
type Resolver struct {
	characters core.CharacterStore
}

// NewResolver constructs a Resolver over the given character store.
func NewResolver(characters core.CharacterStore) *Resolver {
	return &Resolver{characters: characters}
}

// Resolve returns the persona or nil when neither id nor name matches.
func (r *Resolver) Resolve(ctx context.Context, characterID *int64, characterName string) (*core.Character, error) {
	if characterID != nil {
		return r.characters.CharacterByID(ctx, *characterID)
	}
	if characterName != "" {
		return r.characters.CharacterByName(ctx, characterName)
	}
	return nil, nil
}

// SystemPrompt renders a deterministic system prompt for the persona: the
// present attributes in fixed order (name, background, personality, skills,
// current style) followed by the stay-in-character instruction. A nil
// persona yields FallbackPrompt.
func SystemPrompt(c *core.Character) string {
	if c == nil {
		return FallbackPrompt
	}
	parts := []string{"Your name: " + c.Name}
	if c.Background != "" {
		parts = append(parts, "Background: "+c.Background)
	}
	if c.Personality != "" {
		parts = append(parts, "Personality: "+c.Personality)
	}
	if c.Skills != "" {
		parts = append(parts, "Skills: "+c.Skills)
	}
	if c.CurrentStyle != "" {
		parts = append(parts, "Current conversation style: "+c.CurrentStyle)
	}
	parts = append(parts, stayInCharacter)
	return strings.Join(parts, "\n")
}
