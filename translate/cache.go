package translate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores translated queries keyed by the exact input text.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool)
	Set(ctx context.Context, key, value string)
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// MemoryCache is a process-local cache. Expired entries are dropped when read.
type MemoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	m       sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func (c *MemoryCache) Get(ctx context.Context, key string) (value string, ok bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(ctx context.Context, key, value string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[key] = memoryEntry{
		value:   value,
		expires: c.now().Add(c.ttl),
	}
}

func NewRedisCache(log *slog.Logger, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		log:    log,
		client: client,
		ttl:    ttl,
		prefix: "ragtutor:translation:",
	}
}

// RedisCache shares translations between server processes. Redis errors are
// logged and read as a miss.
type RedisCache struct {
	log    *slog.Logger
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func (c *RedisCache) Get(ctx context.Context, key string) (value string, ok bool) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn("translation cache get failed", slog.Any("error", err))
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.log.Warn("translation cache set failed", slog.Any("error", err))
	}
}
