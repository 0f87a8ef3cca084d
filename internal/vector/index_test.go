package vector

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/storage"
)

func openTestIndex(t *testing.T, dims int) *Index {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "vectors.db"), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	idx, err := NewIndex(store.DB(), dims, zerolog.Nop())
	require.NoError(t, err)
	return idx
}

func TestUpsertAndSearch(t *testing.T) {
	idx := openTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, 1, []float32{1, 0, 0}, map[string]string{"title": "buy milk"}))
	require.NoError(t, idx.Upsert(ctx, 2, []float32{0, 1, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, 3, []float32{0.9, 0.1, 0}, nil))

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(1), matches[0].ID)
	assert.Equal(t, int64(3), matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "buy milk", matches[0].Metadata["title"])
}

func TestUpsertDimensionMismatch(t *testing.T) {
	idx := openTestIndex(t, 3)

	err := idx.Upsert(context.Background(), 1, []float32{1, 0}, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestUpsertReplaces(t *testing.T) {
	idx := openTestIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, 7, []float32{1, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, 7, []float32{0, 1}, nil))
	assert.Equal(t, 1, idx.Len())

	matches, err := idx.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestDelete(t *testing.T) {
	idx := openTestIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, 1, []float32{1, 0}, nil))
	assert.True(t, idx.Has(1))

	require.NoError(t, idx.Delete(ctx, 1))
	assert.False(t, idx.Has(1))
	assert.Equal(t, 0, idx.Len())

	// Deleting an unindexed id is a no-op.
	require.NoError(t, idx.Delete(ctx, 42))
}

func TestReopenLoadsIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.db")
	ctx := context.Background()

	store, err := storage.Open(path, time.Second, zerolog.Nop())
	require.NoError(t, err)

	idx, err := NewIndex(store.DB(), 2, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, 1, []float32{1, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, 2, []float32{0, 1}, nil))
	require.NoError(t, store.Close())

	store, err = storage.Open(path, time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	idx, err = NewIndex(store.DB(), 2, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Has(1))
	assert.True(t, idx.Has(2))
}
