package strategy

import (
	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

type contentStrategy struct {
	load     LoadReporter
	fallback Strategy
}

// SelectBackend sends video/, api/ and image/ requests to the least loaded
// healthy backend with the matching affinity. Anything else, or a category
// with no healthy backend, goes to the fallback over all healthy backends.
func (c *contentStrategy) SelectBackend(path string, backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	category := ContentCategory(path)
	if category != backend.ContentDefault {
		candidates := make([]*backend.Backend, 0, len(backends))
		for _, b := range backends {
			if b.Affinity() == category {
				candidates = append(candidates, b)
			}
		}

		if len(candidates) > 0 {
			return leastLoaded(candidates, c.load.ActiveConnections())
		}
	}

	return c.fallback.SelectBackend(path, backends)
}

// NewContentBasedStrategy returns a content-aware strategy. The fallback is
// normally the shared round-robin strategy.
func NewContentBasedStrategy(load LoadReporter, fallback Strategy) Strategy {
	return &contentStrategy{load: load, fallback: fallback}
}
