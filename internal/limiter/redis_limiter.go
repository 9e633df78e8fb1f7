package limiter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// Both scripts are loaded once per process and executed by go-redis's
// Script type, which runs EVALSHA first and transparently falls back to
// EVAL (re-registering the digest) on a NOSCRIPT miss, so no digest
// bookkeeping of our own is needed.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)
local count = redis.call('ZCARD', key)
if count >= limit then
	return {0, count}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window_ms + 1000)
return {1, count + 1}
`)

var concurrencyAdmitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl_ms = tonumber(ARGV[2])

local value = redis.call('INCR', key)
if value == 1 then
	redis.call('PEXPIRE', key, ttl_ms)
end
if value > limit then
	redis.call('DECR', key)
	return {0, value - 1}
end
return {1, value}
`)

var concurrencyReleaseScript = redis.NewScript(`
local key = KEYS[1]
local value = redis.call('DECR', key)
if value < 0 then
	redis.call('SET', key, 0)
	value = 0
end
return value
`)

// RedisLimiter is the production Limiter, backed by the shared
// coordination store.
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter builds a Limiter against an already-connected client,
// such as the one owned by coordination.Store.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) AdmitRPM(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%d", now, rand.Int63())

	res, err := slidingWindowScript.Run(ctx, l.rdb, []string{key}, now, window.Milliseconds(), limit, member).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("limiter: sliding window admit failed for %s: %w", key, err)
	}
	return decisionFromPair(res)
}

func (l *RedisLimiter) AdmitConcurrency(ctx context.Context, key string, limit int, ttl time.Duration) (Decision, error) {
	res, err := concurrencyAdmitScript.Run(ctx, l.rdb, []string{key}, limit, ttl.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("limiter: concurrency admit failed for %s: %w", key, err)
	}
	return decisionFromPair(res)
}

func (l *RedisLimiter) ReleaseConcurrency(ctx context.Context, key string) error {
	if _, err := concurrencyReleaseScript.Run(ctx, l.rdb, []string{key}).Result(); err != nil {
		return fmt.Errorf("limiter: release failed for %s: %w", key, err)
	}
	return nil
}

func (l *RedisLimiter) PeekConcurrency(ctx context.Context, key string) (int, error) {
	v, err := l.rdb.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("limiter: peek failed for %s: %w", key, err)
	}
	return v, nil
}

func decisionFromPair(res interface{}) (Decision, error) {
	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return Decision{}, fmt.Errorf("limiter: unexpected script result shape: %#v", res)
	}
	admitted, ok := pair[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("limiter: unexpected admitted type: %#v", pair[0])
	}
	count, ok := pair[1].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("limiter: unexpected count type: %#v", pair[1])
	}
	return Decision{Admitted: admitted == 1, Count: int(count)}, nil
}
