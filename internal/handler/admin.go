package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/routing-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/routing-proxy/internal/stats"
)

// AdminHandler serves the stats query and the routing policy switch.
type AdminHandler struct {
	logger   *slog.Logger
	balancer *loadbalancer.LoadBalancer
	reporter *stats.Reporter
	notifier Notifier
}

type algorithmRequest struct {
	Algorithm string `json:"algorithm"`
}

// Stats writes the current policy and per-backend counters.
func (a *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.reporter.Report())
}

// SetAlgorithm switches the routing policy. Unknown names are rejected with
// 400 and leave the current policy in place.
func (a *AdminHandler) SetAlgorithm(w http.ResponseWriter, r *http.Request) {
	var req algorithmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	policy, err := a.balancer.SetPolicy(req.Algorithm)
	if errors.Is(err, loadbalancer.ErrInvalidPolicy) {
		a.logger.Warn("Rejected algorithm change", slog.String("requested", req.Algorithm))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid algorithm"})
		return
	}

	a.logger.Info("Algorithm changed", slog.String("algorithm", policy.String()))
	if a.notifier != nil {
		a.notifier.Broadcast()
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Algorithm changed to %s", policy),
	})
}

func NewAdminHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, reporter *stats.Reporter, notifier Notifier) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		balancer: lb,
		reporter: reporter,
		notifier: notifier,
	}
}
