package broadcast

import (
	"sync"

	"github.com/angeloszaimis/routing-proxy/internal/stats"
)

// Observer receives state updates. Publish must not block for long; it is
// called on the request path.
type Observer interface {
	Publish(update stats.Update)
}

// Source builds the update to publish. *stats.Reporter satisfies it.
type Source interface {
	Update() stats.Update
}

type Broadcaster struct {
	source    Source
	mutex     sync.Mutex
	observers []Observer
}

func New(source Source) *Broadcaster {
	return &Broadcaster{source: source}
}

// Subscribe adds an observer.
func (b *Broadcaster) Subscribe(o Observer) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.observers = append(b.observers, o)
}

// Broadcast builds the current update and publishes it to every observer.
func (b *Broadcaster) Broadcast() {
	b.mutex.Lock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mutex.Unlock()

	if len(observers) == 0 {
		return
	}

	update := b.source.Update()
	for _, o := range observers {
		o.Publish(update)
	}
}
