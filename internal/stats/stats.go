// Package stats assembles the externally visible view of the routing proxy:
// the active policy, each backend's identity, health and counters, and the
// recent request log.
package stats

import (
	"github.com/angeloszaimis/routing-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/routing-proxy/internal/metrics"
)

// RecentRequests is the number of history entries included in an Update.
const RecentRequests = 20

type BackendStats struct {
	Name              string  `json:"name"`
	URL               string  `json:"url"`
	Type              string  `json:"type"`
	Color             string  `json:"color"`
	Healthy           bool    `json:"healthy"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRequests     int64   `json:"total_requests"`
	FailedRequests    int64   `json:"failed_requests"`
	AvgResponseMs     float64 `json:"avg_response_time_ms"`
}

// Report is served by the stats endpoint.
type Report struct {
	Algorithm     string         `json:"algorithm"`
	Backends      []BackendStats `json:"backends"`
	TotalRequests int64          `json:"total_requests"`
	TotalFailures int64          `json:"total_failures"`
}

// Update is pushed to observers after every state change.
type Update struct {
	Algorithm      string                  `json:"algorithm"`
	Backends       []BackendStats          `json:"backends"`
	RecentRequests []metrics.RequestRecord `json:"recent_requests"`
}

type Reporter struct {
	balancer *loadbalancer.LoadBalancer
	store    *metrics.Store
}

func NewReporter(balancer *loadbalancer.LoadBalancer, store *metrics.Store) *Reporter {
	return &Reporter{balancer: balancer, store: store}
}

// Report returns the current policy and a single consistent snapshot of the
// backend counters.
func (r *Reporter) Report() Report {
	snap := r.store.Snapshot()

	return Report{
		Algorithm:     r.balancer.Policy().String(),
		Backends:      r.backends(snap),
		TotalRequests: snap.TotalRequests,
		TotalFailures: snap.TotalFailures,
	}
}

// Update returns the current report plus the most recent requests.
func (r *Reporter) Update() Update {
	snap := r.store.Snapshot()

	return Update{
		Algorithm:      r.balancer.Policy().String(),
		Backends:       r.backends(snap),
		RecentRequests: r.store.History(RecentRequests),
	}
}

func (r *Reporter) backends(snap metrics.Snapshot) []BackendStats {
	registry := r.balancer.Registry()
	out := make([]BackendStats, 0, len(snap.Backends))

	for _, m := range snap.Backends {
		b := registry.Get(m.Name)
		out = append(out, BackendStats{
			Name:              m.Name,
			URL:               b.URL().String(),
			Type:              b.Affinity().String(),
			Color:             b.Color(),
			Healthy:           registry.IsHealthy(m.Name),
			ActiveConnections: m.ActiveConnections,
			TotalRequests:     m.TotalRequests,
			FailedRequests:    m.FailedRequests,
			AvgResponseMs:     m.AvgResponseMs,
		})
	}

	return out
}
