// Package discovery resolves logical service ids to concrete instances.
//
// A Client keeps a snapshot of known instances fed by a static table or by
// gossip (hashicorp/memberlist). Transport plugs the snapshot into outbound
// HTTP: requests addressed to http://<service-id>/ are rewritten to one
// healthy instance chosen by a Balancer.
package discovery

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	// ErrUnknownService is returned for ids the registry has never seen.
	ErrUnknownService = errors.New("discovery: unknown service")

	// ErrNoInstances is returned when every instance is filtered out.
	ErrNoInstances = errors.New("discovery: no instances")

	// ErrAllUnhealthy is returned when every instance circuit is open.
	ErrAllUnhealthy = errors.New("discovery: all instances unhealthy")
)

// Client is the discovery client shared by the process.
type Client interface {
	Mode() Mode
	// Instances returns ErrUnknownService for ids not in the registry.
	Instances(serviceID string) ([]Instance, error)
	Services() []string
	All() []Instance
	// Register announces this process; a no-op outside gossip mode.
	Register(ctx context.Context) error
	// Refresh rebuilds the snapshot from the backend.
	Refresh(ctx context.Context) error
	Shutdown() error
}

// New creates the client for cfg.Mode.
func New(cfg *Config, log *zerolog.Logger) (Client, error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	lg := log.With().Str("component", "discovery").Str("mode", string(cfg.Mode)).Logger()

	switch cfg.Mode {
	case ModeStatic:
		return newStaticClient(cfg, lg), nil
	case ModeGossip:
		return newGossipClient(cfg, lg)
	case ModeDisabled, "":
		return &disabledClient{}, nil
	default:
		return nil, errors.New("discovery: unknown mode " + string(cfg.Mode))
	}
}

// snapshot is the copy-on-write instance table shared by the backends.
type snapshot struct {
	v atomic.Pointer[map[string][]Instance]
}

func (s *snapshot) store(instances []Instance) {
	m := index(instances)
	s.v.Store(&m)
}

func (s *snapshot) load() map[string][]Instance {
	if m := s.v.Load(); m != nil {
		return *m
	}
	return nil
}

func (s *snapshot) instances(serviceID string) ([]Instance, error) {
	list, ok := s.load()[normalizeID(serviceID)]
	if !ok {
		return nil, ErrUnknownService
	}
	return slices.Clone(list), nil
}

func (s *snapshot) services() []string {
	ids := lo.Keys(s.load())
	slices.Sort(ids)
	return ids
}

func (s *snapshot) all() []Instance {
	m := s.load()
	out := make([]Instance, 0, len(m))
	for _, id := range s.services() {
		out = append(out, m[id]...)
	}
	return out
}

type disabledClient struct{}

func (disabledClient) Mode() Mode { return ModeDisabled }
func (disabledClient) Instances(string) ([]Instance, error) { return nil, ErrUnknownService }
func (disabledClient) Services() []string { return nil }
func (disabledClient) All() []Instance { return nil }
func (disabledClient) Register(context.Context) error { return nil }
func (disabledClient) Refresh(context.Context) error { return nil }
func (disabledClient) Shutdown() error { return nil }
