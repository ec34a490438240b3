package gatekit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type decisionKey struct {
	userID     int64
	permission string
}

type decisionEntry struct {
	granted   bool
	epoch     uint64
	expiresAt time.Time
}

// MemoryCache is an in-process DecisionCache bounded by size, with entries
// expiring after their TTL. It is safe for concurrent use.
//
// Example:
//
//	cache := gatekit.NewMemoryCache(10000, 5*time.Minute)
//	svc := gatekit.NewService(store, gatekit.WithCache(cache))
type MemoryCache struct {
	mu         sync.Mutex
	lru        *expirable.LRU[decisionKey, decisionEntry]
	generation uint64
	epochs     map[int64]uint64
	now        func() time.Time

	hits, misses, puts, stale atomic.Int64
}

var _ DecisionCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most size decisions.
// maxTTL caps how long any entry lives regardless of the TTL passed to Put.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = 10000
	}
	return &MemoryCache{
		lru:    expirable.NewLRU[decisionKey, decisionEntry](size, nil, maxTTL),
		epochs: make(map[int64]uint64),
		now:    time.Now,
	}
}

// epochLocked is the sum of the global generation and the user's own counter.
// Both only grow, so either kind of invalidation strictly advances it.
func (c *MemoryCache) epochLocked(userID int64) uint64 {
	return c.generation + c.epochs[userID]
}

func (c *MemoryCache) Epoch(_ context.Context, userID int64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochLocked(userID), nil
}

func (c *MemoryCache) Get(_ context.Context, userID int64, permission string) (bool, bool, error) {
	key := decisionKey{userID: userID, permission: permission}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return false, false, nil
	}
	if entry.epoch != c.epochLocked(userID) || !c.now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		c.misses.Add(1)
		return false, false, nil
	}
	c.hits.Add(1)
	return entry.granted, true, nil
}

func (c *MemoryCache) Put(_ context.Context, userID int64, permission string, granted bool, ttl time.Duration, epoch uint64) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epochLocked(userID) {
		c.stale.Add(1)
		return nil
	}
	c.lru.Add(decisionKey{userID: userID, permission: permission}, decisionEntry{
		granted:   granted,
		epoch:     epoch,
		expiresAt: c.now().Add(ttl),
	})
	c.puts.Add(1)
	return nil
}

// InvalidateUser advances the user's epoch. Old entries are dropped lazily on Get.
func (c *MemoryCache) InvalidateUser(_ context.Context, userID int64) error {
	c.mu.Lock()
	c.epochs[userID]++
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) InvalidateUsers(ctx context.Context, userIDs []int64) error {
	c.mu.Lock()
	for _, id := range userIDs {
		c.epochs[id]++
	}
	c.mu.Unlock()
	return nil
}

// Purge drops every decision and folds the per-user epochs into the
// generation, so every user's epoch still advances and the epoch map is emptied.
func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	var highest uint64
	for _, e := range c.epochs {
		highest = max(highest, e)
	}
	c.generation += highest + 1
	clear(c.epochs)
	c.lru.Purge()
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Puts:    c.puts.Load(),
		Stale:   c.stale.Load(),
		Entries: c.lru.Len(),
	}
}

func (c *MemoryCache) Ping(context.Context) error { return nil }
