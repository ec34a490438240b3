package gatekit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a DecisionCache shared by every process pointing at the same
// Redis. The user's epoch is part of each decision key, so invalidation is a
// single INCR and stale keys simply age out.
//
// Keys:
//
//	<prefix>:gen                      global generation, bumped by Purge
//	<prefix>:e:<user>                 per-user epoch
//	<prefix>:d:<user>:<epoch>:<perm>  decision, "1" or "0"
type RedisCache struct {
	client *redis.Client
	prefix string

	hits, misses, puts, stale atomic.Int64
}

var _ DecisionCache = (*RedisCache)(nil)

// NewRedisCache wraps a connected client. An empty prefix defaults to "gatekit".
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "gatekit"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, NewError(ErrMisconfiguration, "invalid redis url").WithCause(err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gatekit: redis ping: %w", err)
	}
	return client, nil
}

func (c *RedisCache) genKey() string { return c.prefix + ":gen" }

func (c *RedisCache) epochKey(userID int64) string {
	return c.prefix + ":e:" + strconv.FormatInt(userID, 10)
}

func (c *RedisCache) decisionKey(userID int64, epoch uint64, permission string) string {
	return fmt.Sprintf("%s:d:%d:%d:%s", c.prefix, userID, epoch, permission)
}

func (c *RedisCache) Epoch(ctx context.Context, userID int64) (uint64, error) {
	vals, err := c.client.MGet(ctx, c.genKey(), c.epochKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	var epoch uint64
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // missing key counts as zero
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("gatekit: corrupt epoch %q: %w", s, err)
		}
		epoch += n
	}
	return epoch, nil
}

func (c *RedisCache) Get(ctx context.Context, userID int64, permission string) (bool, bool, error) {
	epoch, err := c.Epoch(ctx, userID)
	if err != nil {
		return false, false, err
	}
	val, err := c.client.Get(ctx, c.decisionKey(userID, epoch, permission)).Result()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	c.hits.Add(1)
	return val == "1", true, nil
}

func (c *RedisCache) Put(ctx context.Context, userID int64, permission string, granted bool, ttl time.Duration, epoch uint64) error {
	if ttl <= 0 {
		return nil
	}
	current, err := c.Epoch(ctx, userID)
	if err != nil {
		return err
	}
	if current != epoch {
		c.stale.Add(1)
		return nil
	}
	val := "0"
	if granted {
		val = "1"
	}
	if err := c.client.Set(ctx, c.decisionKey(userID, epoch, permission), val, ttl).Err(); err != nil {
		return err
	}
	c.puts.Add(1)
	return nil
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID int64) error {
	return c.client.Incr(ctx, c.epochKey(userID)).Err()
}

func (c *RedisCache) InvalidateUsers(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, c.epochKey(id))
		}
		return nil
	})
	return err
}

func (c *RedisCache) Purge(ctx context.Context) error {
	return c.client.Incr(ctx, c.genKey()).Err()
}

// Stats counts only this process's traffic; Entries is not tracked.
func (c *RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Puts:   c.puts.Load(),
		Stale:  c.stale.Load(),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
