package gatekit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCacheHitMiss tests basic get and put behavior
func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	_, ok, err := c.Get(ctx, 1, "notes.edit")
	require.NoError(t, err)
	assert.False(t, ok)

	epoch, err := c.Epoch(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, epoch))
	require.NoError(t, c.Put(ctx, 1, "notes.delete", false, time.Minute, epoch))

	granted, ok, err := c.Get(ctx, 1, "notes.edit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, granted)

	granted, ok, _ = c.Get(ctx, 1, "notes.delete")
	assert.True(t, ok, "negative decisions are cached too")
	assert.False(t, granted)

	_, ok, _ = c.Get(ctx, 2, "notes.edit")
	assert.False(t, ok, "entries are per user")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Puts)
	assert.Equal(t, 2, stats.Entries)
}

// TestMemoryCacheInvalidateUser tests that invalidation hides old entries and rejects stale puts
func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	before, _ := c.Epoch(ctx, 1)
	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, before))
	require.NoError(t, c.Put(ctx, 2, "notes.edit", true, time.Minute, 0))

	require.NoError(t, c.InvalidateUser(ctx, 1))

	_, ok, _ := c.Get(ctx, 1, "notes.edit")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, 2, "notes.edit")
	assert.True(t, ok, "other users are untouched")

	// A lookup that started before the invalidation must not repopulate.
	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, before))
	_, ok, _ = c.Get(ctx, 1, "notes.edit")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Stale)

	after, _ := c.Epoch(ctx, 1)
	assert.Greater(t, after, before)
	require.NoError(t, c.Put(ctx, 1, "notes.edit", false, time.Minute, after))
	granted, ok, _ := c.Get(ctx, 1, "notes.edit")
	assert.True(t, ok)
	assert.False(t, granted)
}

// TestMemoryCacheInvalidateUsers tests bulk invalidation
func TestMemoryCacheInvalidateUsers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, c.Put(ctx, id, "notes.edit", true, time.Minute, 0))
	}
	require.NoError(t, c.InvalidateUsers(ctx, []int64{1, 3}))

	_, ok1, _ := c.Get(ctx, 1, "notes.edit")
	_, ok2, _ := c.Get(ctx, 2, "notes.edit")
	_, ok3, _ := c.Get(ctx, 3, "notes.edit")
	assert.False(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
}

// TestMemoryCachePurge tests that purge drops everything and advances every epoch
func TestMemoryCachePurge(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	before, _ := c.Epoch(ctx, 42)
	require.NoError(t, c.Put(ctx, 42, "notes.edit", true, time.Minute, before))
	require.NoError(t, c.Purge(ctx))

	_, ok, _ := c.Get(ctx, 42, "notes.edit")
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, 42, "notes.edit", true, time.Minute, before))
	_, ok, _ = c.Get(ctx, 42, "notes.edit")
	assert.False(t, ok, "pre-purge epoch is stale")
}

// TestMemoryCacheTTL tests per-entry expiry
func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, 0))
	_, ok, _ := c.Get(ctx, 1, "notes.edit")
	assert.True(t, ok)

	now = now.Add(time.Minute + time.Second)
	_, ok, _ = c.Get(ctx, 1, "notes.edit")
	assert.False(t, ok)

	t.Run("non-positive ttl is not cached", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, 5, "notes.edit", true, 0, 0))
		_, ok, _ := c.Get(ctx, 5, "notes.edit")
		assert.False(t, ok)
	})
}

// TestMemoryCacheSizeBound tests LRU eviction
func TestMemoryCacheSizeBound(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	require.NoError(t, c.Put(ctx, 1, "a.x", true, time.Minute, 0))
	require.NoError(t, c.Put(ctx, 1, "a.y", true, time.Minute, 0))
	require.NoError(t, c.Put(ctx, 1, "a.z", true, time.Minute, 0))

	assert.Equal(t, 2, c.Stats().Entries)
	_, ok, _ := c.Get(ctx, 1, "a.x")
	assert.False(t, ok, "oldest entry evicted")
}

// TestMemoryCacheConcurrent tests concurrent use under the race detector
func TestMemoryCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1000, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := int64(i % 4)
			for j := 0; j < 100; j++ {
				epoch, _ := c.Epoch(ctx, uid)
				_ = c.Put(ctx, uid, "notes.edit", j%2 == 0, time.Minute, epoch)
				_, _, _ = c.Get(ctx, uid, "notes.edit")
				if j%10 == 0 {
					_ = c.InvalidateUser(ctx, uid)
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestNopCache tests that the no-op cache never hits
func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c DecisionCache = NopCache{}

	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, 0))
	_, ok, err := c.Get(ctx, 1, "notes.edit")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateUser(ctx, 1))
	assert.NoError(t, c.InvalidateUsers(ctx, []int64{1}))
	assert.NoError(t, c.Purge(ctx))
	assert.NoError(t, c.Ping(ctx))
	assert.Equal(t, CacheStats{}, c.Stats())
}

// TestMemoryCachePurgeResetsEpochs tests that a purge empties the per-user
// epoch table while every epoch still moves forward
func TestMemoryCachePurgeResetsEpochs(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.InvalidateUsers(ctx, []int64{1, 2, 3}))
	}
	require.NoError(t, c.InvalidateUser(ctx, 1))
	before1, _ := c.Epoch(ctx, 1)
	before2, _ := c.Epoch(ctx, 2)
	fresh, _ := c.Epoch(ctx, 4)

	require.NoError(t, c.Purge(ctx))
	assert.Empty(t, c.epochs)

	after1, _ := c.Epoch(ctx, 1)
	after2, _ := c.Epoch(ctx, 2)
	after4, _ := c.Epoch(ctx, 4)
	assert.Greater(t, after1, before1)
	assert.Greater(t, after2, before2)
	assert.Greater(t, after4, fresh)

	// Lookups started before the purge must not repopulate.
	require.NoError(t, c.Put(ctx, 1, "notes.edit", true, time.Minute, before1))
	_, ok, _ := c.Get(ctx, 1, "notes.edit")
	assert.False(t, ok)

	// A later invalidation of one user still leaves others cached.
	require.NoError(t, c.Put(ctx, 2, "notes.edit", true, time.Minute, after2))
	require.NoError(t, c.InvalidateUser(ctx, 1))
	_, ok, _ = c.Get(ctx, 2, "notes.edit")
	assert.True(t, ok)
	assert.Len(t, c.epochs, 1)
}
