package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker owns one Circuit per instance, created on first use.
type Tracker struct {
	circuits map[string]*Circuit
	log      *zerolog.Logger
	cfg      BreakerConfig
	mu       sync.RWMutex
}

func NewTracker(cfg BreakerConfig, log *zerolog.Logger) *Tracker {
	return &Tracker{circuits: make(map[string]*Circuit), cfg: cfg, log: log}
}

// Circuit returns the circuit for key, creating it when missing.
func (t *Tracker) Circuit(key string) *Circuit {
	t.mu.RLock()
	c, ok := t.circuits[key]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.circuits[key]; ok {
		return c
	}
	c = NewCircuit(key, t.cfg, t.log)
	t.circuits[key] = c
	return c
}

// IsHealthy reports false only while the instance circuit is open.
// Unknown instances are healthy.
func (t *Tracker) IsHealthy(key string) bool {
	return t.State(key) != StateOpen
}

// State returns StateClosed for instances never seen.
func (t *Tracker) State(key string) State {
	t.mu.RLock()
	c, ok := t.circuits[key]
	t.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return c.State()
}

// Record reports the outcome of one call to key. A nil error counts as success.
func (t *Tracker) Record(key string, err error) {
	c := t.Circuit(key)
	if !c.record(err) || t.log == nil {
		return
	}
	t.log.Debug().Str("instance", key).Str("state", c.State().String()).Err(err).
		Msg("instance outcome recorded")
}

// Snapshot copies the state of every known instance.
func (t *Tracker) Snapshot() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.circuits))
	for k, c := range t.circuits {
		out[k] = c.State()
	}
	return out
}

// Forget drops the circuit for an instance that left the registry.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	delete(t.circuits, key)
	t.mu.Unlock()
}
