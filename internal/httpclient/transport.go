package httpclient

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

type idleCloser interface {
	CloseIdleConnections()
}

// rotatingTransport replaces its inner transport once it is older than
// lifetime. The retired transport finishes in-flight requests and has its
// idle connections closed.
type rotatingTransport struct {
	created    time.Time
	current    http.RoundTripper
	build      func() http.RoundTripper
	now        func() time.Time
	log        zerolog.Logger
	lifetime   time.Duration
	generation int
	mu         sync.Mutex
}

func newRotatingTransport(build func() http.RoundTripper, lifetime time.Duration, log zerolog.Logger) *rotatingTransport {
	t := &rotatingTransport{build: build, lifetime: lifetime, now: time.Now, log: log}
	t.current = build()
	t.created = t.now()
	return t
}

func (t *rotatingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.acquire().RoundTrip(r)
}

func (t *rotatingTransport) acquire() http.RoundTripper {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifetime <= 0 || t.now().Sub(t.created) < t.lifetime {
		return t.current
	}
	retired := t.current
	t.current = t.build()
	t.created = t.now()
	t.generation++
	if c, ok := retired.(idleCloser); ok {
		c.CloseIdleConnections()
	}
	t.log.Debug().Int("generation", t.generation).Msg("transport recycled")
	return t.current
}

// CloseIdleConnections closes idle connections of the live transport.
func (t *rotatingTransport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.current.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}

func newTransport(enableHTTP2 bool, log zerolog.Logger) http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	t := base.Clone()
	t.MaxIdleConnsPerHost = 16
	if enableHTTP2 {
		if _, err := http2.ConfigureTransports(t); err != nil {
			log.Warn().Err(err).Msg("http2 not enabled on client transport")
		}
	}
	return t
}
