package credential

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// healthScript implements a single atomic two-key operation: check
// cooldown, then optionally increment failures (with cooldown-on-threshold)
// or reset on success.
//
// ARGV[2] mode: "check" | "fail" | "success"
var healthScript = redis.NewScript(`
local cooldown_key = KEYS[1]
local failures_key = KEYS[2]
local now = tonumber(ARGV[1])
local mode = ARGV[2]
local cooldown_ms = tonumber(ARGV[3])
local threshold = tonumber(ARGV[4])
local failure_ttl_ms = tonumber(ARGV[5])

local cooldown_until = tonumber(redis.call('GET', cooldown_key) or '0')
if cooldown_until > now then
	return {0, cooldown_until}
end

if mode == 'fail' then
	local count = redis.call('INCR', failures_key)
	redis.call('PEXPIRE', failures_key, failure_ttl_ms)
	if count >= threshold then
		local new_cooldown = now + cooldown_ms
		redis.call('SET', cooldown_key, new_cooldown, 'PX', cooldown_ms)
		redis.call('DEL', failures_key)
		return {0, new_cooldown}
	end
	return {1, 0}
elseif mode == 'success' then
	redis.call('DEL', failures_key)
	return {1, 0}
else
	return {1, 0}
end
`)

// RedisHealth is the production Health implementation.
type RedisHealth struct {
	rdb *redis.Client
	t   Tunables
}

func NewRedisHealth(rdb *redis.Client, t Tunables) *RedisHealth {
	return &RedisHealth{rdb: rdb, t: t}
}

func (h *RedisHealth) run(ctx context.Context, credentialID, mode string) (bool, time.Time, error) {
	now := time.Now().UnixMilli()
	res, err := healthScript.Run(ctx, h.rdb,
		[]string{cooldownKey(credentialID), failuresKey(credentialID)},
		now, mode, h.t.CooldownDuration.Milliseconds(), h.t.FailureThreshold, h.t.FailureTTL.Milliseconds(),
	).Result()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("credential health: script failed for %s: %w", credentialID, err)
	}

	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return false, time.Time{}, fmt.Errorf("credential health: unexpected script result %#v", res)
	}
	available, _ := pair[0].(int64)
	cooldownMs, _ := pair[1].(int64)

	var until time.Time
	if cooldownMs > 0 {
		until = time.UnixMilli(cooldownMs)
	}
	return available == 1, until, nil
}

func (h *RedisHealth) CheckAvailable(ctx context.Context, credentialID string) (bool, time.Time, error) {
	return h.run(ctx, credentialID, "check")
}

func (h *RedisHealth) RecordFailure(ctx context.Context, credentialID string) (bool, time.Time, error) {
	return h.run(ctx, credentialID, "fail")
}

func (h *RedisHealth) RecordSuccess(ctx context.Context, credentialID string) error {
	if _, _, err := h.run(ctx, credentialID, "success"); err != nil {
		return err
	}
	pipe := h.rdb.Pipeline()
	pipe.Incr(ctx, successesKey(credentialID))
	pipe.PExpire(ctx, successesKey(credentialID), h.t.RollupTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("credential health: success rollup failed for %s: %w", credentialID, err)
	}
	return nil
}

func (h *RedisHealth) RecordEndpointOutcome(ctx context.Context, provider, endpoint string, success bool, serviceOverload bool) error {
	pipe := h.rdb.Pipeline()
	kind := "failures"
	if success {
		kind = "successes"
	}
	key := endpointKey(provider, endpoint, kind)
	pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, h.t.RollupTTL)
	if serviceOverload {
		oKey := endpointKey(provider, endpoint, "503_count")
		pipe.Incr(ctx, oKey)
		pipe.PExpire(ctx, oKey, h.t.RollupTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("credential health: endpoint rollup failed for %s/%s: %w", provider, endpoint, err)
	}
	return nil
}

func (h *RedisHealth) EndpointHealthScore(ctx context.Context, provider, endpoint string) (float64, error) {
	pipe := h.rdb.Pipeline()
	sCmd := pipe.Get(ctx, endpointKey(provider, endpoint, "successes"))
	fCmd := pipe.Get(ctx, endpointKey(provider, endpoint, "failures"))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("credential health: endpoint score read failed for %s/%s: %w", provider, endpoint, err)
	}

	successes := parseIntOrZero(sCmd)
	failures := parseIntOrZero(fCmd)
	if successes+failures == 0 {
		return 100, nil
	}
	return 100 * float64(successes) / float64(successes+failures), nil
}

func (h *RedisHealth) EndpointFailureRate(ctx context.Context, provider, endpoint string) (float64, error) {
	pipe := h.rdb.Pipeline()
	sCmd := pipe.Get(ctx, endpointKey(provider, endpoint, "successes"))
	fCmd := pipe.Get(ctx, endpointKey(provider, endpoint, "failures"))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("credential health: endpoint failure rate read failed for %s/%s: %w", provider, endpoint, err)
	}

	successes := parseIntOrZero(sCmd)
	failures := parseIntOrZero(fCmd)
	if successes+failures == 0 {
		return 0, nil
	}
	return float64(failures) / float64(successes+failures), nil
}

func parseIntOrZero(cmd *redis.StringCmd) int64 {
	s, err := cmd.Result()
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
