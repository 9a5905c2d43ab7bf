package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe checks a single instance.
type Probe interface {
	Key() string
	Check(ctx context.Context) error
}

// HTTPProbe issues GET {baseURL}{path} and expects a 2xx.
type HTTPProbe struct {
	client *http.Client
	key    string
	url    string
}

func NewHTTPProbe(key, baseURL, path string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeoutMS * time.Millisecond}
	}
	return &HTTPProbe{
		client: client,
		key:    key,
		url:    strings.TrimRight(baseURL, "/") + path,
	}
}

func (p *HTTPProbe) Key() string { return p.key }

func (p *HTTPProbe) URL() string { return p.url }

func (p *HTTPProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}
	return nil
}

// Checker periodically probes instances whose circuit is open and records
// successes so they rejoin rotation once the breaker allows it.
type Checker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *Tracker
	probes  map[string]Probe
	log     *zerolog.Logger
	cfg     ProbeConfig
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

func NewChecker(tracker *Tracker, cfg ProbeConfig, log *zerolog.Logger) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checker{
		ctx:     ctx,
		cancel:  cancel,
		tracker: tracker,
		probes:  make(map[string]Probe),
		log:     log,
		cfg:     cfg,
	}
}

// Register adds or replaces the probe for p.Key().
func (c *Checker) Register(p Probe) {
	c.mu.Lock()
	c.probes[p.Key()] = p
	c.mu.Unlock()
}

// Unregister removes a probe.
func (c *Checker) Unregister(key string) {
	c.mu.Lock()
	delete(c.probes, key)
	c.mu.Unlock()
}

// Len returns the number of registered probes.
func (c *Checker) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.probes)
}

// Start launches the probe loop. It is a no-op when probing is disabled.
func (c *Checker) Start() {
	if !c.cfg.IsEnabled() {
		if c.log != nil {
			c.log.Info().Msg("instance probing disabled")
		}
		return
	}

	interval := c.cfg.Interval() + jitter(2*time.Second)
	ticker := time.NewTicker(interval)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.ProbeOpen()
			}
		}
	}()
}

// Stop cancels the loop and waits for it.
func (c *Checker) Stop() {
	c.cancel()
	c.wg.Wait()
}

// ProbeOpen runs one round over the instances whose circuit is open.
func (c *Checker) ProbeOpen() {
	c.mu.RLock()
	probes := make([]Probe, 0, len(c.probes))
	for _, p := range c.probes {
		probes = append(probes, p)
	}
	c.mu.RUnlock()

	for _, p := range probes {
		if c.tracker.State(p.Key()) != StateOpen {
			continue
		}

		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout())
		err := p.Check(ctx)
		cancel()

		if err != nil {
			if c.log != nil {
				c.log.Debug().Str("instance", p.Key()).Err(err).Msg("probe failed")
			}
			continue
		}
		if c.log != nil {
			c.log.Info().Str("instance", p.Key()).Msg("probe succeeded")
		}
		c.tracker.Record(p.Key(), nil)
	}
}

func jitter(maxDur time.Duration) time.Duration {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.LittleEndian.Uint64(b[:]) % uint64(maxDur)) //nolint:gosec // maxDur > 0
}
