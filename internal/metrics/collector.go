package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "routing_proxy"

// HealthSource reports backend health flags. *backend.Registry satisfies it.
type HealthSource interface {
	IsHealthy(name string) bool
}

// Collector exposes the Store and backend health as Prometheus metrics.
// Counters are read from a single Store snapshot per scrape.
type Collector struct {
	store  *Store
	health HealthSource
	policy func() string

	activeDesc   *prometheus.Desc
	requestsDesc *prometheus.Desc
	failuresDesc *prometheus.Desc
	latencyDesc  *prometheus.Desc
	healthyDesc  *prometheus.Desc
	policyDesc   *prometheus.Desc

	duration  *prometheus.HistogramVec
	optimized *prometheus.CounterVec
}

func NewCollector(store *Store, health HealthSource, policy func() string) *Collector {
	return &Collector{
		store:  store,
		health: health,
		policy: policy,

		activeDesc: prometheus.NewDesc(namespace+"_backend_active_connections",
			"Requests currently in flight per backend", []string{"backend"}, nil),
		requestsDesc: prometheus.NewDesc(namespace+"_backend_requests_total",
			"Requests routed to the backend", []string{"backend"}, nil),
		failuresDesc: prometheus.NewDesc(namespace+"_backend_failures_total",
			"Requests that failed to reach the backend", []string{"backend"}, nil),
		latencyDesc: prometheus.NewDesc(namespace+"_backend_avg_response_milliseconds",
			"Trailing average response time per backend", []string{"backend"}, nil),
		healthyDesc: prometheus.NewDesc(namespace+"_backend_healthy",
			"Health status per backend (1=healthy, 0=unhealthy)", []string{"backend"}, nil),
		policyDesc: prometheus.NewDesc(namespace+"_routing_policy",
			"Active routing policy", []string{"policy"}, nil),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Proxied request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "type", "status"}),
		optimized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimized_requests_total",
			Help:      "Requests served by a backend whose affinity matched the content type",
		}, []string{"backend"}),
	}
}

// ObserveRequest records a completed or failed request.
func (c *Collector) ObserveRequest(record RequestRecord) {
	seconds := time.Duration(record.DurationMs * float64(time.Millisecond)).Seconds()
	c.duration.WithLabelValues(record.Backend, record.Type.String(), record.Status()).Observe(seconds)

	if record.Optimized {
		c.optimized.WithLabelValues(record.Backend).Inc()
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.requestsDesc
	ch <- c.failuresDesc
	ch <- c.latencyDesc
	ch <- c.healthyDesc
	ch <- c.policyDesc
	c.duration.Describe(ch)
	c.optimized.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Snapshot()

	for _, b := range snap.Backends {
		ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(b.ActiveConnections), b.Name)
		ch <- prometheus.MustNewConstMetric(c.requestsDesc, prometheus.CounterValue, float64(b.TotalRequests), b.Name)
		ch <- prometheus.MustNewConstMetric(c.failuresDesc, prometheus.CounterValue, float64(b.FailedRequests), b.Name)
		ch <- prometheus.MustNewConstMetric(c.latencyDesc, prometheus.GaugeValue, b.AvgResponseMs, b.Name)

		healthy := 0.0
		if c.health.IsHealthy(b.Name) {
			healthy = 1
		}
		ch <- prometheus.MustNewConstMetric(c.healthyDesc, prometheus.GaugeValue, healthy, b.Name)
	}

	if c.policy != nil {
		ch <- prometheus.MustNewConstMetric(c.policyDesc, prometheus.GaugeValue, 1, c.policy())
	}

	c.duration.Collect(ch)
	c.optimized.Collect(ch)
}
