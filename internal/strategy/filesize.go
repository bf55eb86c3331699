package strategy

import (
	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

type fileSizeStrategy struct {
	load     LoadReporter
	fallback Strategy
}

// SelectBackend sends large downloads to the least loaded healthy backend,
// regardless of affinity. Other requests go to the fallback.
func (f *fileSizeStrategy) SelectBackend(path string, backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	if IsLargeFile(path) {
		return leastLoaded(backends, f.load.ActiveConnections())
	}

	return f.fallback.SelectBackend(path, backends)
}

func NewFileSizeStrategy(load LoadReporter, fallback Strategy) Strategy {
	return &fileSizeStrategy{load: load, fallback: fallback}
}
