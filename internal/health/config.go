// Package health tracks the reachability of downstream service instances.
//
// Every discovered instance gets its own circuit breaker. Outbound calls
// report their outcome to the Tracker; while a circuit is open the instance
// is skipped by the load balancer and the Checker probes it in the
// background until it recovers.
package health

import "time"

// Defaults used when a field is zero.
const (
	DefaultFailureThreshold = 5
	DefaultOpenDurationMS   = 30000
	DefaultHalfOpenProbes   = 3
	DefaultProbeIntervalMS  = 10000
	DefaultProbeTimeoutMS   = 5000
	DefaultProbePath        = "/hc"
)

// BreakerConfig controls when an instance circuit opens and how it recovers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
	OpenDurationMS   int `yaml:"open_duration_ms" toml:"open_duration_ms"`
	HalfOpenProbes   int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// Threshold is the number of consecutive failures that opens a circuit.
func (c BreakerConfig) Threshold() uint32 {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return uint32(c.FailureThreshold) //nolint:gosec // positive
}

// OpenDuration is how long a circuit stays open before allowing probes.
func (c BreakerConfig) OpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return DefaultOpenDurationMS * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// Probes is the number of requests let through while half-open.
func (c BreakerConfig) Probes() uint32 {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return uint32(c.HalfOpenProbes) //nolint:gosec // positive
}

// ProbeConfig controls the background checker.
type ProbeConfig struct {
	Enabled    *bool  `yaml:"enabled" toml:"enabled"`
	Path       string `yaml:"path" toml:"path"`
	IntervalMS int    `yaml:"interval_ms" toml:"interval_ms"`
	TimeoutMS  int    `yaml:"timeout_ms" toml:"timeout_ms"`
}

// IsEnabled defaults to true.
func (c ProbeConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c ProbeConfig) Interval() time.Duration {
	if c.IntervalMS <= 0 {
		return DefaultProbeIntervalMS * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

func (c ProbeConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return DefaultProbeTimeoutMS * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ProbePath is the path appended to an instance URL when probing it.
func (c ProbeConfig) ProbePath() string {
	if c.Path == "" {
		return DefaultProbePath
	}
	return c.Path
}

// Config is the `health` configuration section.
type Config struct {
	Breaker BreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
	Probe   ProbeConfig   `yaml:"probe" toml:"probe"`
}
