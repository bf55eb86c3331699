package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

type roundRobinStrategy struct {
	current uint64
}

// The cursor is never reset; when the healthy set changes size between
// calls the modulo is taken against the current size.
func (rb *roundRobinStrategy) SelectBackend(_ string, backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	n := atomic.AddUint64(&rb.current, 1)

	index := (n - 1) % uint64(len(backends))

	return backends[index]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{
		current: 0,
	}
}
