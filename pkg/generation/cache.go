package generation

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/rapport/pkg/ports"
)

// DefaultTTL is the default lifetime of a cached response.
const DefaultTTL = time.Hour

// CacheEntry is one cached response.
type CacheEntry struct {
	Key       string
	Value     ports.GenerationResponse
	CreatedAt time.Time
	TTL       time.Duration
}

func (e CacheEntry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) >= e.TTL
}

// MemoryCache implements ports.ResponseCache in process memory.
// Expired entries are evicted lazily on lookup and by an optional sweeper.
// Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// CacheOption configures a MemoryCache.
type CacheOption func(*MemoryCache)

// WithCacheClock overrides the time source (tests).
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an empty cache. If sweepInterval is positive a
// background goroutine removes expired entries until Close is called.
func NewMemoryCache(sweepInterval time.Duration, opts ...CacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Get returns a live entry, evicting it if expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (ports.GenerationResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return ports.GenerationResponse{}, false, nil
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		return ports.GenerationResponse{}, false, nil
	}
	return entry.Value, true, nil
}

// Set stores a response for ttl. A zero ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, value ports.GenerationResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{Key: key, Value: value, CreatedAt: c.now(), TTL: ttl}
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweeper.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
