package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// MetadataCacheHit is set to true in ToolContext.Metadata when a call was
// answered from the cache.
const MetadataCacheHit = "cache_hit"

// Cache stores tool results.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// CacheKeyFunc derives a cache key from a tool name and its input.
type CacheKeyFunc func(toolName string, args json.RawMessage) string

// DefaultCacheKey hashes the tool name and the canonical form of args, so
// inputs that differ only in key order or whitespace share an entry. The
// model often emits the same tool_use input with keys in a different order.
func DefaultCacheKey(toolName string, args json.RawMessage) string {
	h := sha256.New()
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write(canonicalArgs(args))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalArgs re-encodes args with sorted object keys. Input that is not
// valid JSON is used as is.
func canonicalArgs(args json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return args
	}
	b, err := json.Marshal(v)
	if err != nil {
		return args
	}
	return b
}

// WithCache caches successful results for ttl, keyed by DefaultCacheKey.
func WithCache(cache Cache, ttl time.Duration) Middleware {
	return WithCacheCustomKey(cache, ttl, DefaultCacheKey)
}

// WithCacheCustomKey caches successful results for ttl under keyFunc.
// Concurrent calls with the same key, as the runner makes when a turn
// repeats a tool_use, run the tool once and share its result.
func WithCacheCustomKey(cache Cache, ttl time.Duration, keyFunc CacheKeyFunc) Middleware {
	var group singleflight.Group
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			key := keyFunc(toolName(ctx), args)
			if cached, ok := cache.Get(key); ok {
				markCacheHit(ctx)
				return cached, nil
			}

			v, err, shared := group.Do(key, func() (any, error) {
				result, err := next(ctx, args)
				if err != nil {
					return nil, err
				}
				cache.Set(key, result, ttl)
				return result, nil
			})
			if shared && err == nil {
				markCacheHit(ctx)
			}
			return v, err
		}
	}
}

func markCacheHit(ctx context.Context) {
	tc := ToolContextFromContext(ctx)
	if tc == nil {
		return
	}
	if tc.Metadata == nil {
		tc.Metadata = make(map[string]any)
	}
	tc.Metadata[MetadataCacheHit] = true
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

type cacheItem struct {
	value   any
	expires time.Time
}

// NewMemoryCache returns a process-local Cache. Expired entries are dropped
// on the next write.
func NewMemoryCache() Cache {
	return &memoryCache{
		items: make(map[string]cacheItem),
		now:   time.Now,
	}
}

func (c *memoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || c.now().After(item.expires) {
		return nil, false
	}
	return item.value, true
}

func (c *memoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, k)
		}
	}
	c.items[key] = cacheItem{value: value, expires: now.Add(ttl)}
}
