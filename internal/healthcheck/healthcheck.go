package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 3 * time.Second
	DefaultPath     = "/health"
)

// Notifier is told about every health transition. *broadcast.Broadcaster
// satisfies it.
type Notifier interface {
	Broadcast()
}

type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	Path     string
}

// Monitor probes every backend's health endpoint on a fixed interval and
// flips its flag in the registry. A single failed probe marks a backend
// unhealthy and a single successful one restores it.
type Monitor struct {
	registry *backend.Registry
	client   *http.Client
	interval time.Duration
	path     string
	logger   *slog.Logger
	notifier Notifier
}

// NewMonitor creates a monitor. Zero config values take the defaults;
// notifier may be nil.
func NewMonitor(registry *backend.Registry, cfg Config, logger *slog.Logger, notifier Notifier) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	return &Monitor{
		registry: registry,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		interval: cfg.Interval,
		path:     cfg.Path,
		logger:   logger,
		notifier: notifier,
	}
}

// Run probes all backends immediately and then on every tick until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Health checker started",
		slog.Duration("interval", m.interval),
		slog.Int("backends", len(m.registry.List())))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health checker stopped")
			return

		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll probes every backend concurrently and applies the results.
func (m *Monitor) CheckAll(ctx context.Context) {
	var g errgroup.Group

	for _, b := range m.registry.List() {
		g.Go(func() error {
			m.check(ctx, b)
			return nil
		})
	}

	_ = g.Wait()
}

func (m *Monitor) check(ctx context.Context, b *backend.Backend) {
	err := m.probe(ctx, b)
	if ctx.Err() != nil {
		return
	}

	healthy := err == nil
	if !m.registry.SetHealth(b.Name(), healthy) {
		return
	}

	if healthy {
		m.logger.Info("Server is back up",
			slog.String("server", b.Name()),
			slog.String("url", b.URL().String()))
	} else {
		m.logger.Warn("Server is down",
			slog.String("server", b.Name()),
			slog.String("url", b.URL().String()),
			slog.Any("err", err))
	}

	if m.notifier != nil {
		m.notifier.Broadcast()
	}
}

func (m *Monitor) probe(ctx context.Context, b *backend.Backend) error {
	healthURL := b.URL().ResolveReference(&url.URL{Path: m.path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), nil)
	if err != nil {
		return err
	}

	res, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return &StatusError{Code: res.StatusCode}
	}

	return nil
}
