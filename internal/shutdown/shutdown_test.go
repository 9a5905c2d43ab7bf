package shutdown_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/shutdown"
)

func TestSignals(t *testing.T) {
	assert.Contains(t, shutdown.Signals, syscall.SIGINT)
	assert.Contains(t, shutdown.Signals, syscall.SIGTERM)
}

func TestWait_ContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sig, err := shutdown.Wait(ctx, syscall.SIGUSR2)
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestWait_ReceivesSignal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
	}()

	sig, err := shutdown.Wait(ctx, syscall.SIGUSR1)
	require.NoError(t, err)
	assert.Equal(t, syscall.SIGUSR1, sig)
}

func TestHooks_ReverseOrderAndErrors(t *testing.T) {
	h := shutdown.NewHooks(zerolog.Nop())

	var order []string
	h.Add("database", func(context.Context) error {
		order = append(order, "database")
		return nil
	})
	h.Add("cache", func(context.Context) error {
		order = append(order, "cache")
		return errors.New("flush failed")
	})
	h.Add("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})
	assert.Equal(t, []string{"http", "cache", "database"}, h.Names())

	err := h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: flush failed")
	assert.Equal(t, []string{"http", "cache", "database"}, order)

	require.NoError(t, h.Run(context.Background()))
	assert.Len(t, order, 3)

	h.Add("late", func(context.Context) error { return nil })
	assert.NotContains(t, h.Names(), "late")
}
