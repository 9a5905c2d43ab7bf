// Package cache provides the storefront's process-wide memory cache.
//
// Four backends sit behind one interface:
//   - single (Ristretto): local in-memory cache, the default
//   - ha (Olric): embedded or client-mode distributed map
//   - redis (go-redis): shared cache for multi-instance deployments
//   - disabled (noop): stores nothing
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations.
type Cache interface {
	// Get returns ErrNotFound on a miss and ErrClosed after Close.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with no expiration.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithTTL stores a value that stops being retrievable after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete is idempotent.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Close is idempotent; later operations return ErrClosed.
	Close() error
}

// Stats provides cache statistics for observability.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	BytesUsed uint64 `json:"bytes_used"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by caches that expose statistics.
type StatsProvider interface {
	Stats() Stats
}

// Pinger is implemented by caches whose backing service can be unreachable.
// Local caches return nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks c when it implements Pinger and reports healthy otherwise.
func Ping(ctx context.Context, c Cache) error {
	if p, ok := c.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
