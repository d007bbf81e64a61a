// Package cache is the short-lived key/value layer in front of the third-party
// data APIs.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/metrics"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Common TTLs for upstream views.
const (
	TTLProtocols = 5 * time.Minute
	TTLPools     = 5 * time.Minute
	TTLChains    = 10 * time.Minute
	TTLGas       = 15 * time.Second
	TTLPrices    = 60 * time.Second
	TTLWallet    = 60 * time.Second
	TTLPreview   = time.Hour
	TTLTrending  = 5 * time.Minute
)

// Cache stores JSON-encoded values in Redis. A nil *Cache, or one without a
// client, is a pass-through: Get always misses and Set does nothing.
type Cache struct {
	client *RedisClient
	name   string
}

func New(client *RedisClient) *Cache {
	return &Cache{client: client, name: "redis"}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Ping checks the backing Redis. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx)
}

// Get decodes the value stored under key into dest. It reports false on a
// miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	start := time.Now()
	raw, err := c.client.Get(ctx, key)
	if IsMiss(err) {
		metrics.RecordCacheOperation("get", time.Since(start), nil)
		metrics.RecordCacheMiss(c.name)
		return false, nil
	}
	metrics.RecordCacheOperation("get", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	metrics.RecordCacheHit(c.name)
	return true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	start := time.Now()
	err = c.client.SetEx(ctx, key, raw, ttl)
	metrics.RecordCacheOperation("set", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() {
		return nil
	}
	start := time.Now()
	_, err := c.client.Del(ctx, keys...)
	metrics.RecordCacheOperation("delete", time.Since(start), err)
	return err
}

// DeletePrefix removes every key starting with prefix and returns how many
// were deleted.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	keys, err := c.client.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("cache scan %s: %w", prefix, err)
	}

	var deleted int64
	for len(keys) > 0 {
		n := min(len(keys), 500)
		count, err := c.client.Del(ctx, keys[:n]...)
		if err != nil {
			return deleted, fmt.Errorf("cache delete %s: %w", prefix, err)
		}
		deleted += count
		keys = keys[n:]
	}
	metrics.RecordCacheOperation("delete_prefix", 0, nil)
	return deleted, nil
}

// GetOrSet returns the cached value for key, or calls fetch, stores its
// result for ttl and returns it. cached reports whether the value came from
// the cache. Fetch errors are returned and never cached; cache failures are
// logged and treated as misses.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (value T, cached bool, err error) {
	hit, err := c.Get(ctx, key, &value)
	if err != nil {
		logger.Log.Warn("Cache read failed, falling back to source", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return value, true, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, false, nil
}

// GenerateKey builds "prefix:a=1:b=2" with parameter names sorted, so the
// same parameter set always yields the same key. Parameters whose value is
// nil or "" are left out. Names and values are query-escaped, so a value
// containing ':' or '=' cannot imitate another parameter.
func GenerateKey(prefix string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name, v := range params {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return prefix
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range names {
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fmt.Sprint(params[name])))
	}
	return b.String()
}
