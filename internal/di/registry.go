package di

import (
	"slices"

	"github.com/samber/do/v2"
)

// Descriptor describes one registration.
type Descriptor struct {
	// ServiceType is the abstraction callers resolve.
	ServiceType string
	Lifetime    Lifetime
	// ImplementationType is empty for factory registrations.
	ImplementationType string

	resolve func(do.Injector) (any, error)
}

// Registry is the immutable list of descriptors in registration order.
type Registry struct {
	descriptors []Descriptor
}

func newRegistry(ds []Descriptor) *Registry {
	return &Registry{descriptors: slices.Clone(ds)}
}

// Descriptors returns a copy; mutating it does not affect the registry.
func (r *Registry) Descriptors() []Descriptor {
	if r == nil {
		return nil
	}
	return slices.Clone(r.descriptors)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.descriptors)
}

// Lookup returns the effective descriptor for serviceType: the last one
// registered.
func (r *Registry) Lookup(serviceType string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	for i := len(r.descriptors) - 1; i >= 0; i-- {
		if r.descriptors[i].ServiceType == serviceType {
			return r.descriptors[i], true
		}
	}
	return Descriptor{}, false
}

// effective returns the last descriptor of each service type, in order of
// first appearance.
func (r *Registry) effective() []Descriptor {
	seen := make(map[string]int, len(r.descriptors))
	var out []Descriptor
	for _, d := range r.descriptors {
		if i, ok := seen[d.ServiceType]; ok {
			out[i] = d
			continue
		}
		seen[d.ServiceType] = len(out)
		out = append(out, d)
	}
	return out
}
