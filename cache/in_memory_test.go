package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.HistoryCache = (*InMemoryCache)(nil)
	_ core.HistoryCache = (*RedisCache)(nil)
)

func TestInMemoryCache_MissIsEmptyNotError(t *testing.T) {
	c := NewInMemoryCache()
	history, err := c.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemoryCache_BoundedHistory(t *testing.T) {
	// After appending N+1 pairs with MaxTurns=N, exactly 2N entries remain
	// and they are the most recent ones in chronological order.
	const n = 3
	c := NewInMemoryCache(func(o *Options) { o.MaxTurns = n })
	ctx := context.Background()

	msgs := []string{"m0", "m1", "m2", "m3"}
	for _, m := range msgs {
		require.NoError(t, c.AppendPair(ctx, "s1", m, "re:"+m))
	}

	history, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2*n)
	assert.Equal(t, core.Turn{Role: core.RoleUser, Content: "m1"}, history[0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "re:m3"}, history[2*n-1])
}

func TestInMemoryCache_AppendPairScenario(t *testing.T) {
	c := NewInMemoryCache(func(o *Options) { o.MaxTurns = 2 })
	ctx := context.Background()

	require.NoError(t, c.AppendPair(ctx, "s1", "a", "A"))
	require.NoError(t, c.AppendPair(ctx, "s1", "b", "B"))
	require.NoError(t, c.AppendPair(ctx, "s1", "c", "C"))

	history, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []core.Turn{
		{Role: core.RoleUser, Content: "b"},
		{Role: core.RoleAssistant, Content: "B"},
		{Role: core.RoleUser, Content: "c"},
		{Role: core.RoleAssistant, Content: "C"},
	}, history)
}

func TestInMemoryCache_WriteRefreshesTTL(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewInMemoryCache(func(o *Options) { o.TTL = 10 * time.Second })
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s1", []core.Turn{{Role: core.RoleUser, Content: "hi"}}))

	// A write just before expiry slides the window.
	now = now.Add(9 * time.Second)
	require.NoError(t, c.AppendPair(ctx, "s1", "again", "sure"))

	now = now.Add(9 * time.Second) // 18s after first write, 9s after second
	history, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	// Reads do not refresh: the entry expires 10s after the last write.
	now = now.Add(2 * time.Second)
	history, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.AppendPair(ctx, "s1", "hello", "hi"))
	require.NoError(t, c.Delete(ctx, "s1"))

	history, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemoryCache_GetReturnsCopy(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.AppendPair(ctx, "s1", "hello", "hi"))
	history, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	history[0].Content = "mutated"

	fresh, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh[0].Content)
}
