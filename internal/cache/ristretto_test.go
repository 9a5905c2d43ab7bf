package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRistrettoCache(t *testing.T) *ristrettoCache {
	t.Helper()
	c, err := newRistrettoCache(RistrettoConfig{NumCounters: 100_000, MaxCost: 10 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRistrettoCache_GetSet(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "catalog:items", []byte("payload")))

	got, err := c.Get(ctx, "catalog:items")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRistrettoCache_ReturnsCopies(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'z'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestRistrettoCache_SetWithTTLExpires(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "short", []byte("v"), 50*time.Millisecond))
	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		found, _ := c.Exists(ctx, "short")
		return !found
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRistrettoCache_Delete(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRistrettoCache_ClosedAndCanceled(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(canceled, "k")
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	ctx := context.Background()
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil), ErrClosed)
	assert.Equal(t, Stats{}, c.Stats())
}

func TestRistrettoCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for range 50 {
				_ = c.Set(ctx, key, []byte(key))
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.NotZero(t, stats.Hits+stats.Misses)
}
