package healthcheck_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
	"github.com/angeloszaimis/routing-proxy/internal/healthcheck"
)

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) Broadcast() {
	n.calls.Add(1)
}

var _ = Describe("Monitor", func() {
	var (
		registry    *backend.Registry
		mockBackend *httptest.Server
		status      atomic.Int32
		notifier    *countingNotifier
		monitor     *healthcheck.Monitor
		log         *slog.Logger
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		status.Store(http.StatusOK)

		mockBackend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				w.WriteHeader(int(status.Load()))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))

		registry = backend.NewRegistry(
			backend.New("ServerA", mustParseURL(mockBackend.URL), backend.ContentVideo, ""),
		)
		notifier = &countingNotifier{}
		monitor = healthcheck.NewMonitor(registry, healthcheck.Config{
			Interval: 50 * time.Millisecond,
			Timeout:  200 * time.Millisecond,
		}, log, notifier)
	})

	AfterEach(func() {
		mockBackend.Close()
	})

	Describe("CheckAll", func() {
		It("should stay silent while the backend stays healthy", func() {
			monitor.CheckAll(context.Background())

			Expect(registry.IsHealthy("ServerA")).To(BeTrue())
			Expect(notifier.calls.Load()).To(BeZero())
		})

		It("should mark the backend unhealthy after a single failed probe", func() {
			status.Store(http.StatusInternalServerError)
			monitor.CheckAll(context.Background())

			Expect(registry.Healthy()).To(BeEmpty())
			Expect(notifier.calls.Load()).To(Equal(int32(1)))
		})

		It("should restore the backend after a single successful probe", func() {
			status.Store(http.StatusServiceUnavailable)
			monitor.CheckAll(context.Background())
			Expect(registry.IsHealthy("ServerA")).To(BeFalse())

			status.Store(http.StatusOK)
			monitor.CheckAll(context.Background())
			Expect(registry.IsHealthy("ServerA")).To(BeTrue())
			Expect(notifier.calls.Load()).To(Equal(int32(2)))
		})

		It("should treat any non-200 status as unhealthy", func() {
			status.Store(http.StatusNoContent)
			monitor.CheckAll(context.Background())
			Expect(registry.IsHealthy("ServerA")).To(BeFalse())
		})

		It("should treat a connection error as unhealthy", func() {
			mockBackend.Close()
			monitor.CheckAll(context.Background())
			Expect(registry.IsHealthy("ServerA")).To(BeFalse())
		})

		It("should treat a slow answer as unhealthy", func() {
			slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(500 * time.Millisecond)
			}))
			defer slow.Close()

			slowRegistry := backend.NewRegistry(backend.New("Slow", mustParseURL(slow.URL), backend.ContentAPI, ""))
			slowMonitor := healthcheck.NewMonitor(slowRegistry, healthcheck.Config{Timeout: 100 * time.Millisecond}, log, nil)

			slowMonitor.CheckAll(context.Background())
			Expect(slowRegistry.IsHealthy("Slow")).To(BeFalse())
		})
	})

	Describe("Run", func() {
		It("should keep probing until the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			go func() {
				defer close(done)
				monitor.Run(ctx)
			}()

			status.Store(http.StatusInternalServerError)
			Eventually(func() bool { return registry.IsHealthy("ServerA") }).Should(BeFalse())

			status.Store(http.StatusOK)
			Eventually(func() bool { return registry.IsHealthy("ServerA") }).Should(BeTrue())

			cancel()
			Eventually(done).Should(BeClosed())
		})
	})
})

var _ = Describe("StatusError", func() {
	It("should describe the status", func() {
		err := &healthcheck.StatusError{Code: http.StatusBadGateway}
		Expect(err.Error()).To(Equal("health endpoint returned 502 Bad Gateway"))
	})
})

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}
