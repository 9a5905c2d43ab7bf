package actuator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/discovery"
	"github.com/omarluq/storefront/internal/health"
	"github.com/omarluq/storefront/internal/store"
)

// Status is a health status.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// Health is one contributor's report, or the aggregate.
type Health struct {
	Details map[string]any `json:"details,omitempty"`
	Status  Status         `json:"status"`
}

// Contributor reports the health of one dependency.
type Contributor interface {
	Name() string
	Health(ctx context.Context) Health
}

type contributorFunc struct {
	fn   func(context.Context) Health
	name string
}

func (c contributorFunc) Name() string                      { return c.name }
func (c contributorFunc) Health(ctx context.Context) Health { return c.fn(ctx) }

// ContributorFunc adapts fn.
func ContributorFunc(name string, fn func(context.Context) Health) Contributor {
	return contributorFunc{name: name, fn: fn}
}

// DefaultDiskThreshold is the free space below which disk health is DOWN.
const DefaultDiskThreshold = 10 << 20

// DiskSpace reports DOWN when the volume holding path has less than
// threshold bytes free.
func DiskSpace(path string, threshold uint64) Contributor {
	return ContributorFunc("diskSpace", func(ctx context.Context) Health {
		u, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return Health{Status: StatusUnknown, Details: map[string]any{"error": err.Error()}}
		}
		status := StatusUp
		if u.Free < threshold {
			status = StatusDown
		}
		return Health{Status: status, Details: map[string]any{
			"total":     u.Total,
			"free":      u.Free,
			"threshold": threshold,
		}}
	})
}

// Cache pings the process cache.
func Cache(c cache.Cache) Contributor {
	return ContributorFunc("cache", func(ctx context.Context) Health {
		details := map[string]any{}
		if sp, ok := c.(cache.StatsProvider); ok {
			s := sp.Stats()
			details["hits"], details["misses"], details["keys"] = s.Hits, s.Misses, s.KeyCount
		}
		if err := cache.Ping(ctx, c); err != nil {
			details["error"] = err.Error()
			return Health{Status: StatusDown, Details: details}
		}
		return Health{Status: StatusUp, Details: details}
	})
}

// Databases pings each database.
func Databases(dbs ...*store.Database) Contributor {
	return ContributorFunc("db", func(ctx context.Context) Health {
		status := StatusUp
		details := make(map[string]any, len(dbs))
		for _, db := range dbs {
			kind := "postgres"
			if db.IsMemory() {
				kind = "memory"
			}
			entry := map[string]any{"database": kind, "status": StatusUp}
			if err := db.Ping(ctx); err != nil {
				entry["status"], entry["error"] = StatusDown, err.Error()
				status = StatusDown
			}
			details[db.Name()] = entry
		}
		return Health{Status: status, Details: details}
	})
}

// Discovery lists the known services and the circuit state of their
// instances. It never reports DOWN: an unreachable catalog surfaces on the
// pages that need it.
func Discovery(client discovery.Client, tracker *health.Tracker) Contributor {
	return ContributorFunc("discoveryClient", func(context.Context) Health {
		if client.Mode() == discovery.ModeDisabled {
			return Health{Status: StatusUnknown, Details: map[string]any{"mode": string(client.Mode())}}
		}
		services := map[string][]string{}
		for _, inst := range client.All() {
			state := "closed"
			if tracker != nil {
				state = tracker.State(inst.Key()).String()
			}
			services[inst.ServiceID] = append(services[inst.ServiceID], inst.URL+" ("+state+")")
		}
		for _, v := range services {
			sort.Strings(v)
		}
		return Health{Status: StatusUp, Details: map[string]any{
			"mode":     string(client.Mode()),
			"services": services,
		}}
	})
}

// aggregate checks every contributor with timeout; any DOWN makes the
// aggregate DOWN and UNKNOWN contributors are ignored.
func aggregate(ctx context.Context, contributors []Contributor, timeout time.Duration) Health {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		name string
		h    Health
	}
	results := make(chan result, len(contributors))
	for _, c := range contributors {
		go func() {
			defer func() {
				if v := recover(); v != nil {
					results <- result{c.Name(), Health{Status: StatusDown, Details: map[string]any{"error": fmt.Sprint(v)}}}
				}
			}()
			results <- result{c.Name(), c.Health(ctx)}
		}()
	}

	out := Health{Status: StatusUp, Details: make(map[string]any, len(contributors))}
	for range contributors {
		r := <-results
		out.Details[r.name] = r.h
		if r.h.Status == StatusDown {
			out.Status = StatusDown
		}
	}
	return out
}

// DefaultBasePath is used when no base path is configured.
const DefaultBasePath = "/actuator"

func normalizeBase(base string) string {
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		return DefaultBasePath
	}
	return base
}
