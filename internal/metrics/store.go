package metrics

import (
	"fmt"
	"math"
	"sync"
)

const (
	// LatencyWindow is the number of recent durations kept per backend for
	// the trailing average.
	LatencyWindow = 10

	// HistorySize is the capacity of the recent request log.
	HistorySize = 50
)

type backendCounters struct {
	active    int64
	total     int64
	failed    int64
	latencies *ring[float64]
}

// Store keeps per-backend connection and latency counters plus the recent
// request log. Every mutation and every snapshot goes through one mutex so a
// snapshot is consistent across backends.
type Store struct {
	mutex    sync.Mutex
	names    []string
	counters map[string]*backendCounters
	history  *ring[RequestRecord]
}

// BackendMetrics is a point-in-time view of one backend's counters.
type BackendMetrics struct {
	Name              string  `json:"name"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRequests     int64   `json:"total_requests"`
	FailedRequests    int64   `json:"failed_requests"`
	AvgResponseMs     float64 `json:"avg_response_time_ms"`
}

// Snapshot is a consistent view of every backend's counters.
type Snapshot struct {
	Backends      []BackendMetrics `json:"backends"`
	TotalRequests int64            `json:"total_requests"`
	TotalFailures int64            `json:"total_failures"`
}

// NewStore creates a store for the given backend names. The order of names
// is the order of Snapshot.Backends.
func NewStore(names []string) *Store {
	s := &Store{
		names:    append([]string(nil), names...),
		counters: make(map[string]*backendCounters, len(names)),
		history:  newRing[RequestRecord](HistorySize),
	}

	for _, name := range names {
		s.counters[name] = &backendCounters{latencies: newRing[float64](LatencyWindow)}
	}

	return s
}

// BeginRequest marks the start of a request routed to the backend. It bumps
// the active connection count and the total request count together.
func (s *Store) BeginRequest(backend string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c := s.mustCounters(backend)
	c.active++
	c.total++
}

// EndRequest releases the connection taken by BeginRequest and records the
// request's duration and outcome.
func (s *Store) EndRequest(backend string, durationMs float64, success bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c := s.mustCounters(backend)
	if c.active > 0 {
		c.active--
	}
	c.latencies.push(durationMs)
	if !success {
		c.failed++
	}
}

// ActiveConnections returns the active connection count of every backend,
// read under a single lock.
func (s *Store) ActiveConnections() map[string]int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	active := make(map[string]int64, len(s.counters))
	for name, c := range s.counters {
		active[name] = c.active
	}
	return active
}

// Snapshot returns the counters of every backend at a single instant.
func (s *Store) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	snap := Snapshot{Backends: make([]BackendMetrics, 0, len(s.names))}

	for _, name := range s.names {
		c := s.counters[name]
		snap.Backends = append(snap.Backends, BackendMetrics{
			Name:              name,
			ActiveConnections: c.active,
			TotalRequests:     c.total,
			FailedRequests:    c.failed,
			AvgResponseMs:     average(c.latencies.items()),
		})
		snap.TotalRequests += c.total
		snap.TotalFailures += c.failed
	}

	return snap
}

// RecordHistoryEntry appends a record to the recent request log, evicting the
// oldest entry when the log is full.
func (s *Store) RecordHistoryEntry(record RequestRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.history.push(record)
}

// History returns up to n of the most recent records, oldest first.
// A non-positive n returns the whole log.
func (s *Store) History(n int) []RequestRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items := s.history.items()
	if n > 0 && len(items) > n {
		items = items[len(items)-n:]
	}
	return items
}

func (s *Store) mustCounters(backend string) *backendCounters {
	c, ok := s.counters[backend]
	if !ok {
		panic(fmt.Sprintf("metrics: unknown backend %q", backend))
	}
	return c
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return RoundMs(sum / float64(len(values)))
}

// RoundMs rounds a millisecond value to two decimals.
func RoundMs(ms float64) float64 {
	return math.Round(ms*100) / 100
}
