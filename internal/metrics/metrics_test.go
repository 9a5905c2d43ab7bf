package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/health"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	t.Parallel()
	m := New()
	r := chi.NewRouter()
	r.Get("/Order/Detail/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := m.Middleware(r)

	for _, id := range []string{"1", "2", "3"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Order/Detail/"+id, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	out := scrape(t, m)
	assert.Contains(t, out, `storefront_http_requests_total{method="GET",route="/Order/Detail/{id}",status="418"} 3`)
	assert.Contains(t, out, `route="unmatched",status="404"`)
	assert.Contains(t, out, "storefront_http_inflight_requests 0")
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordSignIn("success")
	m.RecordSignIn("failure")
	m.RecordSignIn("failure")
	m.RecordOrder()

	out := scrape(t, m)
	assert.Contains(t, out, `storefront_identity_signins_total{outcome="failure"} 2`)
	assert.Contains(t, out, "storefront_orders_placed_total 1")
}

func TestWatchCacheAndCircuits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, err := cache.New(ctx, &cache.Config{Mode: cache.ModeSingle, Ristretto: cache.DefaultRistrettoConfig()})
	require.NoError(t, err)
	defer c.Close()
	_ = c.Set(ctx, "k", []byte("v"))
	_, _ = c.Get(ctx, "k")

	tracker := health.NewTracker(health.BreakerConfig{FailureThreshold: 1}, nil)
	tracker.Record("catalog@http://a", assert.AnError)

	m := New()
	m.WatchCache(c)
	m.WatchCircuits(tracker)

	out := scrape(t, m)
	assert.Contains(t, out, "storefront_cache_hits 1")
	assert.Contains(t, out, "storefront_discovery_open_circuits 1")
}
