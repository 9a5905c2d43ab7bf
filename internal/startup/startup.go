// Package startup is the storefront's composition root. A Startup moves
// through Unconfigured, ServicesConfigured, PipelineConfigured and Running,
// each exactly once and in that order.
package startup

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
)

// State is the composition root's lifecycle position.
type State int

const (
	Unconfigured State = iota
	ServicesConfigured
	PipelineConfigured
	Running
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "Unconfigured"
	case ServicesConfigured:
		return "ServicesConfigured"
	case PipelineConfigured:
		return "PipelineConfigured"
	case Running:
		return "Running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a lifecycle step runs out of order
// or twice.
var ErrInvalidTransition = errors.New("startup: invalid state transition")

// Startup wires the storefront from its configuration.
type Startup struct {
	cfg        *config.Config
	runtime    *config.Runtime
	log        zerolog.Logger
	container  *di.Container
	handler    http.Handler
	configPath string
	state      State
	mu         sync.Mutex
}

// Option customises a Startup.
type Option func(*Startup)

// WithConfigPath enables hot reload of the file at path while running.
func WithConfigPath(path string) Option {
	return func(s *Startup) { s.configPath = path }
}

// New creates an unconfigured Startup for cfg. Defaults must already be
// applied to cfg.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *Startup {
	s := &Startup{cfg: cfg, runtime: config.NewRuntime(cfg), log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Startup) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves from want to next.
func (s *Startup) advance(want, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != want {
		return fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, want, next, s.state)
	}
	s.state = next
	return nil
}

func (s *Startup) require(want State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != want {
		return fmt.Errorf("%w: need %s, in %s", ErrInvalidTransition, want, s.state)
	}
	return nil
}

// Container returns the built container; nil before ConfigureServices.
func (s *Startup) Container() *di.Container { return s.container }

// Registry returns the registration snapshot; nil before ConfigureServices.
func (s *Startup) Registry() *di.Registry {
	if s.container == nil {
		return nil
	}
	return s.container.Registry()
}

// Handler returns the composed pipeline; nil before Configure.
func (s *Startup) Handler() http.Handler { return s.handler }

// Runtime returns the live configuration.
func (s *Startup) Runtime() *config.Runtime { return s.runtime }

// IsDevelopment reports whether the host runs in Development.
func (s *Startup) IsDevelopment() bool { return s.cfg.IsDevelopment() }
