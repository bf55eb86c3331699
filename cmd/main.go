package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/routing-proxy/config"
	"github.com/angeloszaimis/routing-proxy/internal/backend"
	"github.com/angeloszaimis/routing-proxy/internal/broadcast"
	"github.com/angeloszaimis/routing-proxy/internal/handler"
	"github.com/angeloszaimis/routing-proxy/internal/healthcheck"
	"github.com/angeloszaimis/routing-proxy/internal/httpserver"
	"github.com/angeloszaimis/routing-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/routing-proxy/internal/metrics"
	"github.com/angeloszaimis/routing-proxy/internal/stats"
	"github.com/angeloszaimis/routing-proxy/internal/strategy"
	"github.com/angeloszaimis/routing-proxy/pkg/logger"
)

// writeTimeoutSlack keeps the server from cutting off a response the proxy
// is still allowed to wait for.
const writeTimeoutSlack = 5 * time.Second

type app struct {
	registry    *backend.Registry
	store       *metrics.Store
	balancer    *loadbalancer.LoadBalancer
	reporter    *stats.Reporter
	broadcaster *broadcast.Broadcaster
	hub         *broadcast.Hub
	collector   *metrics.Collector
	proxy       *handler.LoadBalancerHandler
	admin       *handler.AdminHandler
	monitor     *healthcheck.Monitor
}

func main() {
	cfg, err := config.Load(os.Args[1:]...)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize proxy", slog.Any("err", err))
		os.Exit(1)
	}

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(a),
		httpserver.WithWriteTimeout(cfg.ProxyTimeout()+writeTimeoutSlack))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}
	if a.hub != nil {
		srv.OnShutdown(a.hub.Close)
	}

	log.Info("Routing proxy starting",
		slog.String("address", cfg.Server.Address),
		slog.String("policy", a.balancer.Policy().String()),
		slog.Any("backends", a.registry.Names()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.monitor.Run(gctx)
		return nil
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("Routing proxy stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// newApp wires every component from a validated config.
func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	backends, err := buildBackends(cfg.Backends)
	if err != nil {
		return nil, err
	}

	policy, ok := strategy.ParsePolicy(cfg.Routing.Policy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", loadbalancer.ErrInvalidPolicy, cfg.Routing.Policy)
	}

	a := &app{registry: backend.NewRegistry(backends...)}
	a.store = metrics.NewStore(a.registry.Names())

	a.balancer, err = loadbalancer.NewLoadBalancer(a.registry, a.store, policy)
	if err != nil {
		return nil, err
	}

	a.reporter = stats.NewReporter(a.balancer, a.store)
	a.broadcaster = broadcast.New(a.reporter)

	if cfg.Dashboard.Enabled {
		a.hub = broadcast.NewHub(log, a.reporter.Update)
		a.broadcaster.Subscribe(a.hub)
	}

	a.collector = metrics.NewCollector(a.store, a.registry, func() string {
		return a.balancer.Policy().String()
	})

	a.proxy = handler.NewLoadBalancerHandler(log, a.balancer, a.store, a.collector, a.broadcaster, cfg.ProxyTimeout())
	a.admin = handler.NewAdminHandler(log, a.balancer, a.reporter, a.broadcaster)

	a.monitor = healthcheck.NewMonitor(a.registry, healthcheck.Config{
		Interval: cfg.HealthCheckInterval(),
		Timeout:  cfg.HealthCheckTimeout(),
		Path:     cfg.HealthCheck.Path,
	}, log, a.broadcaster)

	return a, nil
}

// buildBackends expects configs already checked by config.Validate.
func buildBackends(configs []config.BackendConfig) ([]*backend.Backend, error) {
	if len(configs) == 0 {
		return nil, errors.New("no backends configured")
	}

	backends := make([]*backend.Backend, 0, len(configs))
	for _, bc := range configs {
		u, err := url.Parse(bc.URL)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", bc.Name, err)
		}

		backends = append(backends, backend.New(bc.Name, u, backend.ContentType(bc.Affinity), bc.Color))
	}

	return backends, nil
}
