// Package httpclient builds named outbound HTTP clients with pooled
// transports that are recycled after a fixed lifetime.
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownClient   = errors.New("httpclient: unknown client")
	ErrDuplicateClient = errors.New("httpclient: client already registered")
)

// ExtendedHandlerLifetime is the profile used by the catalog client.
const ExtendedHandlerLifetime = "extendedhandlerlifetime"

// Handler wraps a transport, like a delegating handler in a pipeline.
type Handler interface {
	Wrap(next http.RoundTripper) http.RoundTripper
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(next http.RoundTripper) http.RoundTripper

func (f HandlerFunc) Wrap(next http.RoundTripper) http.RoundTripper { return f(next) }

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Profile describes one named client.
type Profile struct {
	// Base builds the innermost transport; defaults to a clone of
	// http.DefaultTransport.
	Base func() http.RoundTripper
	// Handlers run outermost first.
	Handlers        []Handler
	HandlerLifetime time.Duration
	Timeout         time.Duration
	EnableHTTP2     bool
}

type entry struct {
	transport *rotatingTransport
	profile   Profile
}

// Factory hands out clients by name.
type Factory struct {
	clients map[string]*entry
	log     zerolog.Logger
	mu      sync.RWMutex
}

func NewFactory(log zerolog.Logger) *Factory {
	return &Factory{clients: make(map[string]*entry), log: log}
}

// AddClient registers profile under name.
func (f *Factory) AddClient(name string, p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateClient, name)
	}
	base := p.Base
	if base == nil {
		base = func() http.RoundTripper { return newTransport(p.EnableHTTP2, f.log) }
	}
	f.clients[name] = &entry{
		profile:   p,
		transport: newRotatingTransport(base, p.HandlerLifetime, f.log.With().Str("client", name).Logger()),
	}
	f.log.Debug().Str("client", name).Dur("handler_lifetime", p.HandlerLifetime).Msg("http client registered")
	return nil
}

// Client returns a client for name. Clients are cheap; the transport pool
// is shared by every client of the same name.
func (f *Factory) Client(name string) (*http.Client, error) {
	f.mu.RLock()
	e, ok := f.clients[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, name)
	}

	var rt http.RoundTripper = e.transport
	for i := len(e.profile.Handlers) - 1; i >= 0; i-- {
		rt = e.profile.Handlers[i].Wrap(rt)
	}
	return &http.Client{Transport: rt, Timeout: e.profile.Timeout}, nil
}

// Names lists the registered clients.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.clients))
	for n := range f.clients {
		out = append(out, n)
	}
	return out
}

// Shutdown closes idle connections of every client.
func (f *Factory) Shutdown() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.clients {
		e.transport.CloseIdleConnections()
	}
	return nil
}
