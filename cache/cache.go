// Package cache implements the best-effort TTL cache used for similarity
// lookups. It is never the source of truth: callers must tolerate misses,
// stale entries, and a cache that is down entirely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v8"
)

type Cache interface {
	// GetJSON unmarshals the cached value for key into value and reports
	// whether the key was present.
	GetJSON(ctx context.Context, key string, value any) (bool, error)
	// SetJSON stores value as JSON under key for ttl. A zero ttl means no
	// expiry.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type RedisCache struct {
	conn *redis.Client
}

func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{conn: client}, nil
}

func (rc *RedisCache) GetJSON(ctx context.Context, key string, value any) (bool, error) {
	s, err := rc.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(s), value); err != nil {
		return false, fmt.Errorf("unmarshaling cached JSON for %q: %w", key, err)
	}
	return true, nil
}

func (rc *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	t, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling JSON for cache key %q: %w", key, err)
	}
	return rc.conn.Set(ctx, key, string(t), ttl).Err()
}

// MemoryCache is an in-process fallback used when Redis is not configured,
// and by tests that need a controllable clock.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero = no expiry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// SetClock substitutes the time source. Test hook.
func (mc *MemoryCache) SetClock(now func() time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.now = now
}

func (mc *MemoryCache) GetJSON(_ context.Context, key string, value any) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(mc.now()) {
		delete(mc.entries, key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, value); err != nil {
		return false, fmt.Errorf("unmarshaling cached JSON for %q: %w", key, err)
	}
	return true, nil
}

func (mc *MemoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling JSON for cache key %q: %w", key, err)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = mc.now().Add(ttl)
	}
	mc.entries[key] = e
	return nil
}
