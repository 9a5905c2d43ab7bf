package health

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State is a circuit state.
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// Circuit is the breaker guarding one service instance.
type Circuit struct {
	cb  *gobreaker.TwoStepCircuitBreaker[struct{}]
	key string
}

// NewCircuit builds a circuit keyed by instance (service id + URL).
func NewCircuit(key string, cfg BreakerConfig, log *zerolog.Logger) *Circuit {
	threshold := cfg.Threshold()
	settings := gobreaker.Settings{
		Name:        key,
		MaxRequests: cfg.Probes(),
		Timeout:     cfg.OpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log == nil {
				return
			}
			ev := log.Info()
			if to == gobreaker.StateOpen {
				ev = log.Warn()
			}
			ev.Str("instance", name).Str("from", from.String()).Str("to", to.String()).
				Msg("instance circuit changed state")
		},
	}
	return &Circuit{cb: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings), key: key}
}

// Allow admits a call and returns the callback that records its outcome.
func (c *Circuit) Allow() (func(error), error) {
	done, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return done, nil
}

func (c *Circuit) State() State { return c.cb.State() }

func (c *Circuit) Key() string { return c.key }

// record reports err when the circuit admits it. Outcomes observed while the
// circuit is open are dropped; the open timeout alone moves it to half-open.
func (c *Circuit) record(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}

// IsFailure classifies an outbound response. Canceled requests never count;
// server errors and throttling do.
func IsFailure(status int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
