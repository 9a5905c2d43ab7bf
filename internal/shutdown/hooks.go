package shutdown

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type hook struct {
	fn   func(context.Context) error
	name string
}

// Hooks runs cleanup functions in reverse registration order, once.
type Hooks struct {
	log   zerolog.Logger
	hooks []hook
	mu    sync.Mutex
	done  bool
}

func NewHooks(log zerolog.Logger) *Hooks {
	return &Hooks{log: log}
}

// Add registers fn under name. Hooks added after Run are ignored.
func (h *Hooks) Add(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Names lists hooks in the order Run will call them.
func (h *Hooks) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.hooks))
	for _, hk := range slices.Backward(h.hooks) {
		names = append(names, hk.name)
	}
	return names
}

// Run calls every hook, newest first, and joins their errors. Every hook
// runs even after ctx expires so each can release what it can.
func (h *Hooks) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return nil
	}
	h.done = true
	hooks := slices.Clone(h.hooks)
	h.mu.Unlock()

	var errs []error
	for _, hk := range slices.Backward(hooks) {
		start := time.Now()
		if err := hk.fn(ctx); err != nil {
			h.log.Error().Err(err).Str("hook", hk.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", hk.name, err))
			continue
		}
		h.log.Debug().Str("hook", hk.name).Dur("took", time.Since(start)).Msg("shutdown hook done")
	}
	return errors.Join(errs...)
}
