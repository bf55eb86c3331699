package metrics

import (
	"encoding/json"
	"time"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RequestRecord describes one proxied request for the recent request log.
type RequestRecord struct {
	ID         string
	Timestamp  time.Time
	Path       string
	Type       backend.ContentType
	Backend    string
	DurationMs float64
	Success    bool
	Optimized  bool
}

// Status returns "success" or "failed".
func (r RequestRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusFailed
}

func (r RequestRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string  `json:"id"`
		Timestamp  string  `json:"timestamp"`
		Path       string  `json:"path"`
		Type       string  `json:"type"`
		Backend    string  `json:"backend"`
		DurationMs float64 `json:"duration"`
		Status     string  `json:"status"`
		Optimized  bool    `json:"optimized"`
	}{
		ID:         r.ID,
		Timestamp:  r.Timestamp.Format(time.TimeOnly),
		Path:       r.Path,
		Type:       r.Type.String(),
		Backend:    r.Backend,
		DurationMs: r.DurationMs,
		Status:     r.Status(),
		Optimized:  r.Optimized,
	})
}

// ring is a fixed-capacity FIFO that drops its oldest element when full.
type ring[T any] struct {
	buf   []T
	start int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if len(r.buf) == 0 {
		return
	}

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}

	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// items returns a copy of the contents, oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
