package discovery

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/storefront/internal/health"
)

// Transport rewrites requests whose host is a known service id to one of
// its instances and reports each outcome to the health tracker. Requests to
// hosts the registry does not know pass through untouched.
type Transport struct {
	client   Client
	balancer Balancer
	tracker  *health.Tracker
	next     http.RoundTripper
	log      zerolog.Logger
}

// NewTransport wraps next; a nil next uses http.DefaultTransport and a nil
// tracker treats every instance as healthy.
func NewTransport(client Client, balancer Balancer, tracker *health.Tracker, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{
		client:   client,
		balancer: balancer,
		tracker:  tracker,
		next:     next,
		log:      zerolog.Nop(),
	}
}

// WithLogger sets the logger used for selection failures.
func (t *Transport) WithLogger(log zerolog.Logger) *Transport {
	t.log = log
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	serviceID := req.URL.Hostname()
	instances, err := t.client.Instances(serviceID)
	if errors.Is(err, ErrUnknownService) {
		return t.next.RoundTrip(req)
	}
	if err != nil {
		return nil, err
	}

	candidates := lo.Map(instances, func(inst Instance, _ int) Candidate {
		c := Candidate{Instance: inst}
		if t.tracker != nil {
			key := inst.Key()
			c.IsHealthy = func() bool { return t.tracker.IsHealthy(key) }
		}
		return c
	})

	chosen, err := t.balancer.Select(req.Context(), candidates)
	if err != nil {
		t.log.Warn().Err(err).Str("service", serviceID).Msg("no instance available")
		return nil, fmt.Errorf("discovery: %s: %w", serviceID, err)
	}

	out, err := rewrite(req, chosen.Instance.URL)
	if err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(out)
	if t.tracker != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		var outcome error
		if health.IsFailure(status, err) {
			outcome = err
			if outcome == nil {
				outcome = fmt.Errorf("status %d", status)
			}
		}
		t.tracker.Record(chosen.Instance.Key(), outcome)
	}
	return resp, err
}

// rewrite points a clone of req at base, prefixing base's path.
func rewrite(req *http.Request, base string) (*http.Request, error) {
	target, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("discovery: instance url: %w", err)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = target.Scheme
	out.URL.Host = target.Host
	if prefix := strings.TrimRight(target.Path, "/"); prefix != "" {
		out.URL.Path = prefix + "/" + strings.TrimLeft(req.URL.Path, "/")
		out.URL.RawPath = ""
	}
	out.Host = target.Host
	return out, nil
}
