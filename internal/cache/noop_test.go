package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopCache(t *testing.T) {
	t.Parallel()
	c := newNoopCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, Ping(ctx, c))

	require.NoError(t, c.Close())
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}
