package config

import "sync/atomic"

// Runtime holds the live configuration. Reads are lock-free; the watcher swaps in
// a new document on reload while in-flight requests keep the one they loaded.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime seeded with initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store replaces the configuration.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

// AppSettings returns the current hot-reloadable options.
func (r *Runtime) AppSettings() AppSettings {
	return r.ptr.Load().AppSettings
}

var _ RuntimeConfig = (*Runtime)(nil)
