package capability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheRoundTrip(t *testing.T) {
	c := NewLRUCache(4)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(4)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stale", []byte("v"), -time.Second))
	_, ok := c.Get(ctx, "stale")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCacheSetUpdatesExisting(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Minute))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, "never-set"))
}
