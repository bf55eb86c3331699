// Package metrics provides the per-backend bookkeeping of the routing proxy.
//
// Store tracks, for every backend:
//   - Active connections (requests currently in flight)
//   - Total and failed request counts
//   - A trailing window of the last 10 response times
//
// It also keeps a 50 entry log of recent requests for dashboards. All
// mutations share one mutex so that Snapshot is consistent across backends.
//
// Example usage:
//
//	store := metrics.NewStore([]string{"ServerA", "ServerB"})
//	store.BeginRequest("ServerA")
//	// forward the request...
//	store.EndRequest("ServerA", 42.5, true)
//
//	snap := store.Snapshot()
//
// Collector exports the same counters, plus request duration histograms,
// to Prometheus.
package metrics
