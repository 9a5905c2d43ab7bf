package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

type ristrettoCache struct {
	cache *ristretto.Cache[string, []byte]
	log   zerolog.Logger
	life  lifecycle
}

var (
	_ Cache         = (*ristrettoCache)(nil)
	_ StatsProvider = (*ristrettoCache)(nil)
)

func newRistrettoCache(cfg RistrettoConfig) (*ristrettoCache, error) {
	log := logger().With().Str("backend", "ristretto").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
		Metrics:     true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}

	log.Info().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Msg("ristretto cache created")

	return &ristrettoCache{cache: c, log: log}, nil
}

func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	release, err := r.life.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	value, found := r.cache.Get(key)
	r.log.Debug().Str("key", key).Bool("hit", found).Msg("cache get")
	if !found {
		return nil, ErrNotFound
	}
	return cloneBytes(value), nil
}

func (r *ristrettoCache) Set(ctx context.Context, key string, value []byte) error {
	return r.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value; a zero ttl never expires. The write is flushed
// before returning so a following Get observes it.
func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	release, err := r.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	cost := int64(len(value))
	if ttl > 0 {
		r.cache.SetWithTTL(key, cloneBytes(value), cost, ttl)
	} else {
		r.cache.Set(key, cloneBytes(value), cost)
	}
	r.cache.Wait()

	r.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (r *ristrettoCache) Delete(ctx context.Context, key string) error {
	release, err := r.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	r.cache.Del(key)
	return nil
}

func (r *ristrettoCache) Exists(ctx context.Context, key string) (bool, error) {
	release, err := r.life.enter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	_, found := r.cache.Get(key)
	return found, nil
}

func (r *ristrettoCache) Close() error {
	return r.life.shut(func() error {
		r.cache.Wait()
		r.cache.Close()
		r.log.Info().Msg("ristretto cache closed")
		return nil
	})
}

func (r *ristrettoCache) Stats() Stats {
	release, err := r.life.enter(context.Background())
	if err != nil {
		return Stats{}
	}
	defer release()

	m := r.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeyCount:  m.KeysAdded() - m.KeysEvicted(),
		BytesUsed: m.CostAdded() - m.CostEvicted(),
		Evictions: m.KeysEvicted(),
	}
}
