package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/routing-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/routing-proxy/internal/metrics"
	"github.com/angeloszaimis/routing-proxy/internal/strategy"
)

const DefaultForwardTimeout = 10 * time.Second

// Notifier is told after every state change. *broadcast.Broadcaster
// satisfies it.
type Notifier interface {
	Broadcast()
}

// LoadBalancerHandler is the proxy entry point. Each request is routed to
// exactly one backend; a failed forward is reported to the caller and never
// retried elsewhere.
type LoadBalancerHandler struct {
	logger           *slog.Logger
	balancer         *loadbalancer.LoadBalancer
	store            *metrics.Store
	metricsCollector *metrics.Collector
	notifier         Notifier
	forwardTimeout   time.Duration
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (lb *LoadBalancerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	clientIP := extractClientIP(r)
	path := strategy.NormalizePath(r.URL.Path)
	category := strategy.ContentCategory(path)

	nextServer, err := lb.balancer.Select(path)
	if err != nil {
		lb.logger.Error("No healthy backends available",
			slog.String("client", clientIP),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "No healthy backends available",
		})
		return
	}

	requestID := uuid.NewString()
	name := nextServer.Name()

	lb.store.BeginRequest(name)

	success := false
	defer func() {
		duration := time.Since(start)
		durationMs := float64(duration.Microseconds()) / 1000

		lb.store.EndRequest(name, durationMs, success)
		lb.record(metrics.RequestRecord{
			ID:         requestID,
			Timestamp:  time.Now(),
			Path:       "/" + path,
			Type:       category,
			Backend:    name,
			DurationMs: metrics.RoundMs(durationMs),
			Success:    success,
			Optimized:  success && nextServer.Affinity() == category,
		})
	}()

	lb.logger.Debug("Forwarding to backend",
		slog.String("client", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("type", category.String()),
		slog.String("backend", name),
		slog.String("request_id", requestID))

	w.Header().Set("X-Backend-Server", name)
	w.Header().Set("X-Request-ID", requestID)

	// The forward outlives a disconnecting client and is bounded only by
	// the forward timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), lb.forwardTimeout)
	defer cancel()

	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	if err := nextServer.Forward(ctx, wrapped, r); err != nil {
		lb.logger.Error("Backend unavailable",
			slog.String("backend", name),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "Backend unavailable",
			"backend": name,
		})
		return
	}

	success = true
	lb.logger.Info("Request served",
		slog.String("type", category.String()),
		slog.String("path", r.URL.Path),
		slog.String("backend", name),
		slog.Int("status", wrapped.statusCode),
		slog.Duration("elapsed", time.Since(start)))
}

// record appends the request to the history, exports it and notifies
// observers.
func (lb *LoadBalancerHandler) record(rec metrics.RequestRecord) {
	lb.store.RecordHistoryEntry(rec)

	if lb.metricsCollector != nil {
		lb.metricsCollector.ObserveRequest(rec)
	}

	if lb.notifier != nil {
		lb.notifier.Broadcast()
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewLoadBalancerHandler creates the proxy handler. collector and notifier
// may be nil; a non-positive timeout takes DefaultForwardTimeout.
func NewLoadBalancerHandler(
	logger *slog.Logger,
	lb *loadbalancer.LoadBalancer,
	store *metrics.Store,
	collector *metrics.Collector,
	notifier Notifier,
	forwardTimeout time.Duration,
) *LoadBalancerHandler {
	if forwardTimeout <= 0 {
		forwardTimeout = DefaultForwardTimeout
	}

	return &LoadBalancerHandler{
		logger:           logger,
		balancer:         lb,
		store:            store,
		metricsCollector: collector,
		notifier:         notifier,
		forwardTimeout:   forwardTimeout,
	}
}
