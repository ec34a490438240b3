package gatekit

import (
	"context"
	"time"
)

// DecisionCache memoizes (user, permission) -> granted decisions.
//
// Every user has an epoch. Invalidating a user advances its epoch, and Put
// drops a decision computed under an older epoch, so a lookup that raced with
// a mutation can never repopulate the cache with the pre-mutation answer.
// Callers read the epoch before querying the store and hand it back to Put.
type DecisionCache interface {
	// Epoch returns the current epoch of a user.
	Epoch(ctx context.Context, userID int64) (uint64, error)
	// Get returns a cached decision; ok is false on a miss or an expired entry.
	Get(ctx context.Context, userID int64, permission string) (granted, ok bool, err error)
	// Put stores a decision computed at epoch. It is a no-op when the epoch is stale.
	Put(ctx context.Context, userID int64, permission string, granted bool, ttl time.Duration, epoch uint64) error
	// InvalidateUser drops every decision for a user.
	InvalidateUser(ctx context.Context, userID int64) error
	// InvalidateUsers drops every decision for each user.
	InvalidateUsers(ctx context.Context, userIDs []int64) error
	// Purge drops every decision for every user.
	Purge(ctx context.Context) error
	// Stats reports hit and miss counters.
	Stats() CacheStats
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// CacheStats are cumulative cache counters.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Puts    int64 `json:"puts"`
	Stale   int64 `json:"stale"`
	Entries int   `json:"entries"`
}

// NopCache disables decision caching. Every Get misses.
type NopCache struct{}

var _ DecisionCache = NopCache{}

func (NopCache) Epoch(context.Context, int64) (uint64, error) { return 0, nil }

func (NopCache) Get(context.Context, int64, string) (bool, bool, error) { return false, false, nil }

func (NopCache) Put(context.Context, int64, string, bool, time.Duration, uint64) error { return nil }

func (NopCache) InvalidateUser(context.Context, int64) error { return nil }

func (NopCache) InvalidateUsers(context.Context, []int64) error { return nil }

func (NopCache) Purge(context.Context) error { return nil }

func (NopCache) Stats() CacheStats { return CacheStats{} }

func (NopCache) Ping(context.Context) error { return nil }
