package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func answer(text string) *entities.Answer {
	return &entities.Answer{Response: text, ContextUsed: "ctx", Sources: []string{"Gita"}}
}

func TestKey_Normalizes(t *testing.T) {
	assert.Equal(t, Key("What is Om?"), Key("  what is om?\n"))
	assert.NotEqual(t, Key("What is Om?"), Key("What is japa?"))
	assert.Len(t, Key("x"), 32)
}

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory(10, time.Hour, nil)
	ctx := context.Background()

	_, ok := c.Get(ctx, "What is Om?")
	assert.False(t, ok)

	c.Set(ctx, "What is Om?", answer("Om is sound."))
	got, ok := c.Get(ctx, "what is om?  ")
	require.True(t, ok)
	assert.Equal(t, "Om is sound.", got.Response)

	// callers cannot mutate the cached copy
	got.Sources[0] = "changed"
	again, _ := c.Get(ctx, "What is Om?")
	assert.Equal(t, []string{"Gita"}, again.Sources)

	stats := c.Stats(ctx)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
	assert.Equal(t, 3600, stats.TTLSeconds)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, "66.7%", stats.HitRate)
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemory(2, time.Hour, nil)
	ctx := context.Background()

	c.Set(ctx, "a", answer("A"))
	c.Set(ctx, "b", answer("B"))
	c.Get(ctx, "a") // a is now most recent
	c.Set(ctx, "c", answer("C"))

	_, okA := c.Get(ctx, "a")
	_, okB := c.Get(ctx, "b")
	_, okC := c.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestMemory_Expires(t *testing.T) {
	c := NewMemory(10, time.Minute, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "q", answer("A"))
	now = now.Add(59 * time.Second)
	_, ok := c.Get(ctx, "q")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "q")
	assert.False(t, ok)
	assert.Zero(t, c.Stats(ctx).Size)
}

func TestMemory_Clear(t *testing.T) {
	c := NewMemory(10, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "q", answer("A"))
	c.Set(ctx, "nil", nil)

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Stats(ctx).Size)
	assert.Equal(t, "0.0%", c.Stats(ctx).HitRate)
}
