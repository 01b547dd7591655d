package ports

import (
	"context"
	"time"
)

// ResponseCache stores generation responses under canonical keys.
type ResponseCache interface {
	// Get returns the cached response. Expired entries are reported as misses
	// and may be evicted as a side effect.
	Get(ctx context.Context, key string) (GenerationResponse, bool, error)

	// Set stores a response for ttl.
	Set(ctx context.Context, key string, value GenerationResponse, ttl time.Duration) error
}
