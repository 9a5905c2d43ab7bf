package cache

import (
	"context"
	"time"
)

// noopCache stores nothing: writes succeed and reads miss.
type noopCache struct {
	life lifecycle
}

var (
	_ Cache         = (*noopCache)(nil)
	_ StatsProvider = (*noopCache)(nil)
)

func newNoopCache() *noopCache {
	logger().Debug().Str("backend", "noop").Msg("caching is disabled")
	return &noopCache{}
}

func (c *noopCache) Get(ctx context.Context, _ string) ([]byte, error) {
	release, err := c.life.enter(ctx)
	if err != nil {
		return nil, err
	}
	release()
	return nil, ErrNotFound
}

func (c *noopCache) Set(ctx context.Context, key string, value []byte) error {
	return c.SetWithTTL(ctx, key, value, 0)
}

func (c *noopCache) SetWithTTL(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	release, err := c.life.enter(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

func (c *noopCache) Delete(ctx context.Context, key string) error {
	return c.SetWithTTL(ctx, key, nil, 0)
}

func (c *noopCache) Exists(ctx context.Context, _ string) (bool, error) {
	release, err := c.life.enter(ctx)
	if err != nil {
		return false, err
	}
	release()
	return false, nil
}

func (c *noopCache) Close() error {
	return c.life.shut(func() error { return nil })
}

func (c *noopCache) Stats() Stats {
	return Stats{}
}
