//go:build integration

package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var olricPort atomic.Int32

func init() {
	olricPort.Store(13320)
}

func TestOlricCache_Embedded(t *testing.T) {
	ctx := context.Background()
	c, err := newOlricCache(ctx, &OlricConfig{
		Embedded:    true,
		BindAddr:    fmt.Sprintf("127.0.0.1:%d", olricPort.Add(1)),
		DMapName:    "storefront-test",
		StartupWait: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.SetWithTTL(ctx, "ttl", []byte("v"), 100*time.Millisecond))
	assert.Eventually(t, func() bool {
		ok, _ := c.Exists(ctx, "ttl")
		return !ok
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, c.Delete(ctx, "missing"))
	require.NoError(t, c.Ping(ctx))
}
