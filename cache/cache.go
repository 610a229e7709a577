// Package cache wraps redis as a read-through JSON cache for the split list
// queries. A nil client disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL for cached split lists. Short on purpose: invalidation on writes is
// best-effort only.
const SplitListTTL = 30 * time.Second

type Cache struct {
	rdb *redis.Client
}

// New wraps a redis client. Passing nil yields a disabled cache whose
// operations are all no-ops.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// SplitListKey builds the cache key for a wallet's split list query.
func SplitListKey(wallet, status string, limit, skip int) string {
	return fmt.Sprintf("splits:%s:%s:%d:%d", wallet, status, limit, skip)
}

// Get retrieves a value and unmarshals it into dest. Returns false when the
// key is absent or caching is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.rdb == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(val), dest)
}

// Set stores a JSON-marshaled value with a TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// InvalidateWallet drops every cached split list for a wallet.
func (c *Cache) InvalidateWallet(ctx context.Context, wallet string) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "splits:"+wallet+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
