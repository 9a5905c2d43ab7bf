// Package actuator serves the management endpoints: links, health, info
// and Prometheus metrics under a configurable base path.
package actuator

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"github.com/omarluq/storefront/internal/version"
	"github.com/omarluq/storefront/internal/web"
)

// Endpoint ids.
const (
	EndpointHealth     = "health"
	EndpointInfo       = "info"
	EndpointPrometheus = "prometheus"
)

const healthTimeout = 5 * time.Second

// InfoContributor adds fields to the info document.
type InfoContributor func(ctx context.Context, doc []byte) ([]byte, error)

// Options configures the actuator.
type Options struct {
	Metrics      http.Handler
	BasePath     string
	Exposure     []string
	Contributors []Contributor
	Info         []InfoContributor
}

// Actuator routes requests under its base path.
type Actuator struct {
	mux  *http.ServeMux
	base string
	opts Options
}

// New builds the endpoints named in opts.Exposure. Prometheus needs
// opts.Metrics.
func New(opts Options) *Actuator {
	a := &Actuator{base: normalizeBase(opts.BasePath), opts: opts, mux: http.NewServeMux()}
	a.mux.HandleFunc("GET "+a.path(""), a.links)
	if a.exposed(EndpointHealth) {
		a.mux.HandleFunc("GET "+a.path(EndpointHealth), a.health)
	}
	if a.exposed(EndpointInfo) {
		a.mux.HandleFunc("GET "+a.path(EndpointInfo), a.info)
	}
	if a.exposed(EndpointPrometheus) {
		a.mux.Handle("GET "+a.path(EndpointPrometheus), opts.Metrics)
	}
	return a
}

func (a *Actuator) path(id string) string {
	if id == "" {
		return a.base
	}
	return a.base + "/" + id
}

func (a *Actuator) exposed(id string) bool {
	if id == EndpointPrometheus && a.opts.Metrics == nil {
		return false
	}
	return slices.Contains(a.opts.Exposure, id)
}

// Endpoints returns the exposed endpoint ids.
func (a *Actuator) Endpoints() []string {
	var ids []string
	for _, id := range []string{EndpointHealth, EndpointInfo, EndpointPrometheus} {
		if a.exposed(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Middleware serves actuator paths and passes every other request on.
func (a *Actuator) Middleware() web.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if p != a.path("") && !strings.HasPrefix(p, a.base+"/") {
				next.ServeHTTP(w, r)
				return
			}
			if _, pattern := a.mux.Handler(r); pattern == "" {
				next.ServeHTTP(w, r)
				return
			}
			a.mux.ServeHTTP(w, r)
		})
	}
}

type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

func (a *Actuator) links(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	if r.TLS != nil {
		base = "https://" + r.Host
	}
	links := map[string]link{"self": {Href: base + a.path("")}}
	for _, id := range a.Endpoints() {
		links[id] = link{Href: base + a.path(id)}
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{"type": "storefront", "_links": links})
}

func (a *Actuator) health(w http.ResponseWriter, r *http.Request) {
	h := aggregate(r.Context(), a.opts.Contributors, healthTimeout)
	status := http.StatusOK
	if h.Status == StatusDown {
		status = http.StatusServiceUnavailable
	}
	web.WriteJSON(w, status, h)
}

func (a *Actuator) info(w http.ResponseWriter, r *http.Request) {
	doc, err := BuildInfo(r.Context(), a.opts.Info...)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("info contributor failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// BuildInfo renders the build section and applies contributors in order.
// A failing contributor is skipped and its error returned with the
// partial document.
func BuildInfo(ctx context.Context, contributors ...InfoContributor) ([]byte, error) {
	v := version.Get()
	doc := []byte(`{}`)
	doc, _ = sjson.SetBytes(doc, "build.version", v.Version)
	doc, _ = sjson.SetBytes(doc, "build.commit", v.Commit)
	doc, _ = sjson.SetBytes(doc, "build.date", v.BuildDate)
	doc, _ = sjson.SetBytes(doc, "build.go", v.GoVersion)

	var firstErr error
	for _, c := range contributors {
		next, err := c(ctx, doc)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		doc = next
	}
	return doc, firstErr
}

// StaticInfo sets path to value.
func StaticInfo(path string, value any) InfoContributor {
	return func(_ context.Context, doc []byte) ([]byte, error) {
		return sjson.SetBytes(doc, path, value)
	}
}
