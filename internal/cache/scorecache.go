// Package cache provides an optional similarity-score cache, keyed by an
// unordered track-ID pair, backed by Redis with an in-memory fallback when
// no Redis connection is configured. It is a pure performance layer: a
// cache miss or Redis outage must never change a returned similarity
// value, only how many times it gets recomputed (SPEC_FULL §4.4 [EXPANDED]).
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScoreCache stores Breakdown-shaped JSON blobs under a pair key.
type ScoreCache interface {
	Get(ctx context.Context, a, b string) (string, bool)
	Set(ctx context.Context, a, b string, value string, ttl time.Duration)
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "soundprint:score:" + a + ":" + b
}

// RedisCache is the default ScoreCache. Any Redis error is treated as a
// miss/no-op rather than surfaced, consistent with the cache's
// never-affect-correctness contract.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *RedisCache) Get(ctx context.Context, a, b string) (string, bool) {
	val, err := c.client.Get(ctx, pairKey(a, b)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, a, b string, value string, ttl time.Duration) {
	c.client.Set(ctx, pairKey(a, b), value, ttl)
}

// MemoryCache is the fallback used when no Redis address is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry)}
}

func (c *MemoryCache) Get(_ context.Context, a, b string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[pairKey(a, b)]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && timeExpired(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, a, b string, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.entries[pairKey(a, b)] = memEntry{value: value, expiresAt: expiresAt}
}

func timeExpired(t time.Time) bool {
	return time.Now().After(t)
}

// Encode/Decode let callers store arbitrary JSON-serializable breakdowns
// without this package importing the scorer package (avoiding an import
// cycle, since scorer has no reason to depend on cache).
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func Decode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
