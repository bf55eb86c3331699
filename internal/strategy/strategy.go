package strategy

import (
	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

// Strategy picks one backend out of the healthy set for a request path.
// It returns nil only when backends is empty.
type Strategy interface {
	SelectBackend(path string, backends []*backend.Backend) *backend.Backend
}

// LoadReporter reports the active connection count of every backend, read
// at a single instant. *metrics.Store satisfies it.
type LoadReporter interface {
	ActiveConnections() map[string]int64
}
