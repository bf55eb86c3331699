package backend

import (
	"fmt"
	"sync"
)

// Registry owns the static backend list and the live health flag of each
// backend. Backends start healthy until the first health probe says otherwise.
type Registry struct {
	mutex    sync.Mutex
	backends []*Backend
	index    map[string]int
	healthy  []bool
}

// NewRegistry creates a registry preserving the declaration order of backends.
// It panics on duplicate names.
func NewRegistry(backends ...*Backend) *Registry {
	r := &Registry{
		backends: make([]*Backend, len(backends)),
		index:    make(map[string]int, len(backends)),
		healthy:  make([]bool, len(backends)),
	}

	for i, b := range backends {
		if _, dup := r.index[b.Name()]; dup {
			panic(fmt.Sprintf("backend: duplicate backend name %q", b.Name()))
		}
		r.backends[i] = b
		r.index[b.Name()] = i
		r.healthy[i] = true
	}

	return r
}

// List returns all backends in declaration order.
func (r *Registry) List() []*Backend {
	out := make([]*Backend, len(r.backends))
	copy(out, r.backends)
	return out
}

// Names returns the backend names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Get returns the backend with the given name, or nil.
func (r *Registry) Get(name string) *Backend {
	i, ok := r.index[name]
	if !ok {
		return nil
	}
	return r.backends[i]
}

// Healthy returns the backends whose health flag is set, in declaration order.
func (r *Registry) Healthy() []*Backend {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	healthy := make([]*Backend, 0, len(r.backends))
	for i, b := range r.backends {
		if r.healthy[i] {
			healthy = append(healthy, b)
		}
	}

	return healthy
}

// IsHealthy reports the current health flag of the named backend.
func (r *Registry) IsHealthy(name string) bool {
	i := r.mustIndex(name)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.healthy[i]
}

// SetHealth updates the named backend's health flag.
// Returns true if the flag changed, false if it was already in that state.
func (r *Registry) SetHealth(name string, healthy bool) (changed bool) {
	i := r.mustIndex(name)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.healthy[i] == healthy {
		return false
	}

	r.healthy[i] = healthy
	return true
}

func (r *Registry) mustIndex(name string) int {
	i, ok := r.index[name]
	if !ok {
		panic(fmt.Sprintf("backend: unknown backend %q", name))
	}
	return i
}
