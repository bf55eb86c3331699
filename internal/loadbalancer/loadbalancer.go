package loadbalancer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
	"github.com/angeloszaimis/routing-proxy/internal/strategy"
)

var (
	ErrNoHealthyBackend = errors.New("no healthy backends available")
	ErrInvalidPolicy    = errors.New("invalid routing policy")
)

// LoadBalancer is the routing engine. It owns the active routing policy and
// one strategy per policy; content-based and file-size routing share the
// round-robin cursor for their fallback.
type LoadBalancer struct {
	registry   *backend.Registry
	roundRobin strategy.Strategy
	strategies map[strategy.Policy]strategy.Strategy
	policy     atomic.Value
}

func NewLoadBalancer(registry *backend.Registry, load strategy.LoadReporter, policy strategy.Policy) (*LoadBalancer, error) {
	if _, ok := strategy.ParsePolicy(policy.String()); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	rr := strategy.NewRoundRobinStrategy()

	lb := &LoadBalancer{
		registry:   registry,
		roundRobin: rr,
		strategies: map[strategy.Policy]strategy.Strategy{
			strategy.RoundRobin:       rr,
			strategy.LeastConnections: strategy.NewLeastConnStrategy(load),
			strategy.ContentBased:     strategy.NewContentBasedStrategy(load, rr),
			strategy.FileSize:         strategy.NewFileSizeStrategy(load, rr),
		},
	}
	lb.policy.Store(policy)

	return lb, nil
}

// Policy returns the active routing policy.
func (lb *LoadBalancer) Policy() strategy.Policy {
	return lb.policy.Load().(strategy.Policy)
}

// SetPolicy switches the active policy. Unknown names are rejected with
// ErrInvalidPolicy and the current policy is kept. Requests already being
// routed may still observe the previous policy.
func (lb *LoadBalancer) SetPolicy(name string) (strategy.Policy, error) {
	policy, ok := strategy.ParsePolicy(name)
	if !ok {
		return lb.Policy(), fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}

	lb.policy.Store(policy)
	return policy, nil
}

// Select picks a backend for path using the active policy.
func (lb *LoadBalancer) Select(path string) (*backend.Backend, error) {
	return lb.SelectWith(lb.Policy(), path)
}

// SelectWith picks a backend for path using the given policy. It returns
// ErrNoHealthyBackend when every backend is down.
func (lb *LoadBalancer) SelectWith(policy strategy.Policy, path string) (*backend.Backend, error) {
	healthy := lb.registry.Healthy()
	if len(healthy) == 0 {
		return nil, ErrNoHealthyBackend
	}

	strat, ok := lb.strategies[policy]
	if !ok {
		strat = lb.roundRobin
	}

	chosen := strat.SelectBackend(path, healthy)
	if chosen == nil {
		return nil, fmt.Errorf("strategy %s returned nil backend", policy)
	}

	return chosen, nil
}

// Registry returns the backend registry the balancer selects from.
func (lb *LoadBalancer) Registry() *backend.Registry {
	return lb.registry
}
