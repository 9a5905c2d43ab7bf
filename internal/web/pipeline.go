// Package web is the storefront's HTTP host: an ordered middleware
// pipeline, request-scoped services, error pages, transport security and
// the server itself.
package web

import (
	"net/http"
	"slices"
	"strings"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

type stage struct {
	mw   Middleware
	name string
}

// Pipeline is an ordered list of named stages. The first stage added sees
// the request first.
type Pipeline struct {
	stages []stage
}

func NewPipeline() *Pipeline { return &Pipeline{} }

// Use appends a stage.
func (p *Pipeline) Use(name string, mw Middleware) *Pipeline {
	p.stages = append(p.stages, stage{name: name, mw: mw})
	return p
}

// Map appends a stage that answers requests for path, and for anything
// below it, with h and passes everything else on.
func (p *Pipeline) Map(path string, h http.Handler) *Pipeline {
	path = strings.TrimRight(path, "/")
	return p.Use("map "+path, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path || strings.HasPrefix(r.URL.Path, path+"/") {
				h.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Has reports whether a stage named name was added.
func (p *Pipeline) Has(name string) bool {
	return slices.Contains(p.Stages(), name)
}

// Build composes the stages around terminal. A nil terminal answers 404.
func (p *Pipeline) Build(terminal http.Handler) http.Handler {
	h := terminal
	if h == nil {
		h = http.NotFoundHandler()
	}
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].mw(h)
	}
	return h
}
