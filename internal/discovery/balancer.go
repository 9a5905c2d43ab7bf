package discovery

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// Balancing strategies.
const (
	StrategyRoundRobin         = "round_robin"
	StrategyWeightedRoundRobin = "weighted_round_robin"
	StrategyRandom             = "random"
	StrategyFailover           = "failover"
)

// Candidate pairs an instance with its health probe.
type Candidate struct {
	IsHealthy func() bool
	Instance  Instance
}

// Healthy is true when no probe is attached.
func (c Candidate) Healthy() bool {
	return c.IsHealthy == nil || c.IsHealthy()
}

// FilterHealthy drops candidates whose circuit is open.
func FilterHealthy(candidates []Candidate) []Candidate {
	return lo.Filter(candidates, func(c Candidate, _ int) bool {
		return c.Healthy()
	})
}

// Balancer picks one instance per outbound request.
type Balancer interface {
	Select(ctx context.Context, candidates []Candidate) (Candidate, error)
	Name() string
}

// NewBalancer returns the balancer for strategy; empty means round robin.
func NewBalancer(strategy string) (Balancer, error) {
	switch strategy {
	case StrategyRoundRobin, "":
		return &RoundRobin{}, nil
	case StrategyWeightedRoundRobin:
		return &WeightedRoundRobin{}, nil
	case StrategyRandom:
		return Random{}, nil
	case StrategyFailover:
		return Failover{}, nil
	default:
		return nil, fmt.Errorf("discovery: unknown strategy %q", strategy)
	}
}

func healthyOrErr(candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoInstances
	}
	healthy := FilterHealthy(candidates)
	if len(healthy) == 0 {
		return nil, ErrAllUnhealthy
	}
	return healthy, nil
}

// RoundRobin cycles through healthy instances.
type RoundRobin struct {
	next atomic.Uint64
}

func (r *RoundRobin) Select(_ context.Context, candidates []Candidate) (Candidate, error) {
	healthy, err := healthyOrErr(candidates)
	if err != nil {
		return Candidate{}, err
	}
	n := r.next.Add(1) - 1
	return healthy[n%uint64(len(healthy))], nil
}

func (r *RoundRobin) Name() string { return StrategyRoundRobin }

// WeightedRoundRobin is the smooth weighted round robin used by nginx.
// Weights <= 0 count as 1.
type WeightedRoundRobin struct {
	current []int
	keys    []string
	mu      sync.Mutex
}

func weight(c Candidate) int {
	return max(c.Instance.Weight, 1)
}

func (w *WeightedRoundRobin) Select(_ context.Context, candidates []Candidate) (Candidate, error) {
	healthy, err := healthyOrErr(candidates)
	if err != nil {
		return Candidate{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	keys := lo.Map(healthy, func(c Candidate, _ int) string { return c.Instance.Key() })
	if !slices.Equal(keys, w.keys) {
		w.current = make([]int, len(healthy))
		w.keys = keys
	}

	total := lo.SumBy(healthy, weight)
	best := 0
	for i, c := range healthy {
		w.current[i] += weight(c)
		if w.current[i] > w.current[best] {
			best = i
		}
	}
	w.current[best] -= total
	return healthy[best], nil
}

func (w *WeightedRoundRobin) Name() string { return StrategyWeightedRoundRobin }

// Random picks uniformly among healthy instances.
type Random struct{}

func (Random) Select(_ context.Context, candidates []Candidate) (Candidate, error) {
	healthy, err := healthyOrErr(candidates)
	if err != nil {
		return Candidate{}, err
	}
	return healthy[randIntn(len(healthy))], nil
}

func (Random) Name() string { return StrategyRandom }

func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	if v, err := rand.Int(rand.Reader, big.NewInt(int64(n))); err == nil {
		return int(v.Int64())
	}
	return int(time.Now().UnixNano() % int64(n))
}

// Failover always prefers the highest-priority healthy instance; ties keep
// registry order.
type Failover struct{}

func (Failover) Select(_ context.Context, candidates []Candidate) (Candidate, error) {
	healthy, err := healthyOrErr(candidates)
	if err != nil {
		return Candidate{}, err
	}
	sorted := slices.Clone(healthy)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return b.Instance.Priority - a.Instance.Priority
	})
	return sorted[0], nil
}

func (Failover) Name() string { return StrategyFailover }
