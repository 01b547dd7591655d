package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/rapport/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultCachePrefix = "rapport:cache:"

// Cache implements ports.ResponseCache. Expiry is delegated to Redis.
type Cache struct {
	client *backend.Client
	prefix string
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCachePrefix sets the key prefix.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// NewCache creates a cache on an existing client.
func NewCache(client *backend.Client, opts ...CacheOption) *Cache {
	c := &Cache{client: client, prefix: defaultCachePrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached response, if any.
func (c *Cache) Get(ctx context.Context, key string) (ports.GenerationResponse, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return ports.GenerationResponse{}, false, nil
		}
		return ports.GenerationResponse{}, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var resp ports.GenerationResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return ports.GenerationResponse{}, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return resp, true, nil
}

// Set stores a response. A non-positive ttl keeps it until evicted by Redis.
func (c *Cache) Set(ctx context.Context, key string, value ports.GenerationResponse, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

var _ ports.ResponseCache = (*Cache)(nil)
