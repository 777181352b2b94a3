package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first delivery is new", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("repeat delivery is not new", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "evt-2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "evt-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		seen, err := store.IsProcessed(ctx, "evt-2")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("expired delivery can be processed again", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }
		defer func() { store.now = time.Now }()

		_, err := store.MarkProcessed(ctx, "evt-3", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		isNew, err := store.MarkProcessed(ctx, "evt-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _ = store.MarkProcessed(context.Background(), "short", time.Second)
	_, _ = store.MarkProcessed(context.Background(), "long", time.Hour)
	require.Equal(t, 2, store.Size())

	now = now.Add(time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
