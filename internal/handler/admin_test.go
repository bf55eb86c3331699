package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
	"github.com/angeloszaimis/routing-proxy/internal/handler"
	"github.com/angeloszaimis/routing-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/routing-proxy/internal/metrics"
	"github.com/angeloszaimis/routing-proxy/internal/stats"
	"github.com/angeloszaimis/routing-proxy/internal/strategy"
)

var _ = Describe("AdminHandler", func() {
	var (
		admin    *handler.AdminHandler
		lb       *loadbalancer.LoadBalancer
		registry *backend.Registry
		store    *metrics.Store
		notifier *countingNotifier
	)

	postAlgorithm := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/lb/algorithm", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		admin.SetAlgorithm(w, req)
		return w
	}

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry = backend.NewRegistry(
			backend.New("ServerA", mustParseURL("http://localhost:5001"), backend.ContentVideo, "#FF6B6B"),
			backend.New("ServerB", mustParseURL("http://localhost:5002"), backend.ContentAPI, "#4ECDC4"),
		)
		store = metrics.NewStore(registry.Names())

		var err error
		lb, err = loadbalancer.NewLoadBalancer(registry, store, strategy.ContentBased)
		Expect(err).NotTo(HaveOccurred())

		notifier = &countingNotifier{}
		admin = handler.NewAdminHandler(log, lb, stats.NewReporter(lb, store), notifier)
	})

	Describe("SetAlgorithm", func() {
		DescribeTable("accepts every known policy",
			func(name string) {
				w := postAlgorithm(`{"algorithm":"` + name + `"}`)

				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(w.Body.String()).To(ContainSubstring("Algorithm changed to " + name))
				Expect(lb.Policy().String()).To(Equal(name))
				Expect(notifier.calls.Load()).To(Equal(int32(1)))
			},
			Entry("round robin", "round-robin"),
			Entry("least connections", "least-connections"),
			Entry("content based", "content-based"),
			Entry("file size", "file-size"),
		)

		It("should reject an unknown policy and keep the current one", func() {
			w := postAlgorithm(`{"algorithm":"random"}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("Invalid algorithm"))
			Expect(lb.Policy()).To(Equal(strategy.ContentBased))
			Expect(notifier.calls.Load()).To(BeZero())
		})

		It("should reject a malformed body", func() {
			w := postAlgorithm(`not json`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(lb.Policy()).To(Equal(strategy.ContentBased))
		})
	})

	Describe("Stats", func() {
		It("should report the policy, backends and totals", func() {
			registry.SetHealth("ServerB", false)
			store.BeginRequest("ServerA")
			store.EndRequest("ServerA", 25, false)

			w := httptest.NewRecorder()
			admin.Stats(w, httptest.NewRequest(http.MethodGet, "/lb/stats", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var report stats.Report
			Expect(json.Unmarshal(w.Body.Bytes(), &report)).To(Succeed())
			Expect(report.Algorithm).To(Equal("content-based"))
			Expect(report.TotalRequests).To(Equal(int64(1)))
			Expect(report.TotalFailures).To(Equal(int64(1)))
			Expect(report.Backends).To(HaveLen(2))
			Expect(report.Backends[0].Name).To(Equal("ServerA"))
			Expect(report.Backends[0].AvgResponseMs).To(Equal(25.0))
			Expect(report.Backends[1].Healthy).To(BeFalse())
		})
	})
})
