package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// fixedWindowScript increments the counter and starts the window on the
// first hit. It returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter keeps the counters in Redis so every server instance shares
// them.
type RedisLimiter struct {
	client *cache.RedisClient
	now    func() time.Time
}

func NewRedisLimiter(client *cache.RedisClient) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (r *RedisLimiter) Backend() string { return "redis" }

func (r *RedisLimiter) Check(ctx context.Context, identifier string, rule Rule) (Result, error) {
	key := redisKeyPrefix + rule.key(identifier)

	vals, err := fixedWindowScript.Run(ctx, r.client.Client(), []string{key}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit check %s: unexpected reply %v", key, vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	res := Result{
		Allowed: count <= rule.Max,
		Limit:   rule.Max,
		ResetAt: r.now().Add(ttl),
	}
	if res.Allowed {
		res.Remaining = rule.Max - count
	}
	return res, nil
}

// Reset deletes every counter held by identifier.
func (r *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	keys, err := r.client.ScanKeys(ctx, redisKeyPrefix+"*:"+identifier)
	if err != nil {
		return fmt.Errorf("rate limit reset %s: %w", identifier, err)
	}
	_, err = r.client.Del(ctx, keys...)
	return err
}

// Usage is one live counter, as reported by Status.
type Usage struct {
	Rule  string
	Count int64
	TTL   time.Duration
}

// Status lists the live counters for identifier.
func (r *RedisLimiter) Status(ctx context.Context, identifier string) ([]Usage, error) {
	keys, err := r.client.ScanKeys(ctx, redisKeyPrefix+"*:"+identifier)
	if err != nil {
		return nil, err
	}

	usages := make([]Usage, 0, len(keys))
	for _, key := range keys {
		raw, err := r.client.Get(ctx, key)
		if cache.IsMiss(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		count, _ := strconv.ParseInt(string(raw), 10, 64)
		ttl, _ := r.client.TTL(ctx, key)

		rule := strings.TrimPrefix(key, redisKeyPrefix)
		rule = strings.TrimSuffix(rule, ":"+identifier)
		usages = append(usages, Usage{Rule: presetName(rule), Count: count, TTL: ttl})
	}
	return usages, nil
}

// presetName maps a "<max>/<window ms>" counter prefix back to its preset
// name, when there is one.
func presetName(prefix string) string {
	for _, r := range Presets() {
		if strings.TrimSuffix(r.key(""), ":") == prefix {
			return r.Name
		}
	}
	return prefix
}
