package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brandRow struct {
	ID    int    `json:"id"`
	Brand string `json:"brand"`
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]brandRow, error) {
		calls++
		return []brandRow{{ID: 1, Brand: ".NET"}}, nil
	}

	first, err := GetOrLoad(ctx, c, "brands", time.Minute, load)
	require.NoError(t, err)
	second, err := GetOrLoad(ctx, c, "brands", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_LoadErrorNotCached(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()
	boom := errors.New("catalog unavailable")

	_, err := GetOrLoad(ctx, c, "types", time.Minute, func(context.Context) ([]brandRow, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := c.Exists(ctx, "types")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	t.Parallel()
	c := newTestRistrettoCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "bad", []byte("{not json")))
	_, err := GetJSON[brandRow](ctx, c, "bad")
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
