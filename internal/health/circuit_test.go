package health_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/health"
)

const catalogInstance = "catalog-api@http://10.0.0.5:5101"

func TestCircuit_OpensAfterThreshold(t *testing.T) {
	t.Parallel()
	c := health.NewCircuit(catalogInstance, health.BreakerConfig{FailureThreshold: 3, OpenDurationMS: 1000}, nil)
	boom := errors.New("connection refused")

	for range 3 {
		done, err := c.Allow()
		require.NoError(t, err)
		done(boom)
	}

	assert.Equal(t, health.StateOpen, c.State())
	_, err := c.Allow()
	assert.ErrorIs(t, err, health.ErrCircuitOpen)
}

func TestCircuit_HalfOpenThenClosed(t *testing.T) {
	t.Parallel()
	c := health.NewCircuit(catalogInstance, health.BreakerConfig{
		FailureThreshold: 1, OpenDurationMS: 50, HalfOpenProbes: 1,
	}, nil)

	done, err := c.Allow()
	require.NoError(t, err)
	done(errors.New("503"))
	require.Equal(t, health.StateOpen, c.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, health.StateHalfOpen, c.State())

	done, err = c.Allow()
	require.NoError(t, err)
	done(nil)
	assert.Equal(t, health.StateClosed, c.State())
}

func TestCircuit_CanceledIsNotFailure(t *testing.T) {
	t.Parallel()
	c := health.NewCircuit(catalogInstance, health.BreakerConfig{FailureThreshold: 1}, nil)

	done, err := c.Allow()
	require.NoError(t, err)
	done(context.Canceled)
	assert.Equal(t, health.StateClosed, c.State())
}

func TestIsFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"ok", http.StatusOK, nil, false},
		{"not found", http.StatusNotFound, nil, false},
		{"throttled", http.StatusTooManyRequests, nil, true},
		{"server error", http.StatusBadGateway, nil, true},
		{"transport error", 0, errors.New("dial tcp"), true},
		{"canceled", 0, context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, health.IsFailure(tt.status, tt.err))
		})
	}
}

func TestBreakerConfig_Defaults(t *testing.T) {
	t.Parallel()
	var cfg health.BreakerConfig
	assert.Equal(t, uint32(health.DefaultFailureThreshold), cfg.Threshold())
	assert.Equal(t, 30*time.Second, cfg.OpenDuration())
	assert.Equal(t, uint32(health.DefaultHalfOpenProbes), cfg.Probes())

	var probe health.ProbeConfig
	assert.True(t, probe.IsEnabled())
	assert.Equal(t, 10*time.Second, probe.Interval())
	assert.Equal(t, 5*time.Second, probe.Timeout())
	assert.Equal(t, "/hc", probe.ProbePath())
}
