package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the production Cache, backed by the shared coordination
// store. Entries are plain JSON blobs — no script is needed since lookup
// and store are each a single key operation.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Lookup(ctx context.Context, fingerprint string) (*Result, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(fingerprint)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: lookup failed for %s: %w", fingerprint, err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("cache: corrupt entry for %s: %w", fingerprint, err)
	}
	return &result, true, nil
}

func (c *RedisCache) Store(ctx context.Context, fingerprint string, result Result, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal failed for %s: %w", fingerprint, err)
	}
	if err := c.rdb.Set(ctx, Key(fingerprint), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: store failed for %s: %w", fingerprint, err)
	}
	return nil
}
