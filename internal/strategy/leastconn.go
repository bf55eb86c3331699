package strategy

import (
	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

type leastConnStrategy struct {
	load LoadReporter
}

func (l *leastConnStrategy) SelectBackend(_ string, backends []*backend.Backend) *backend.Backend {
	return leastLoaded(backends, l.load.ActiveConnections())
}

// leastLoaded returns the first backend with the lowest active count, so
// ties go to the earliest declared backend.
func leastLoaded(backends []*backend.Backend, active map[string]int64) *backend.Backend {
	var bestBackend *backend.Backend
	var bestConns int64

	for _, b := range backends {
		conns := active[b.Name()]
		if bestBackend == nil || conns < bestConns {
			bestConns = conns
			bestBackend = b
		}
	}

	return bestBackend
}

func NewLeastConnStrategy(load LoadReporter) Strategy {
	return &leastConnStrategy{load: load}
}
