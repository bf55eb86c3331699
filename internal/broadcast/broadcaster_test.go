package broadcast_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/routing-proxy/internal/broadcast"
	"github.com/angeloszaimis/routing-proxy/internal/stats"
)

type countingSource struct {
	mutex sync.Mutex
	calls int
}

func (s *countingSource) Update() stats.Update {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	return stats.Update{Algorithm: "round-robin"}
}

type recordingObserver struct {
	mutex   sync.Mutex
	updates []stats.Update
}

func (o *recordingObserver) Publish(u stats.Update) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.updates = append(o.updates, u)
}

var _ = Describe("Broadcaster", func() {
	var (
		source      *countingSource
		broadcaster *broadcast.Broadcaster
	)

	BeforeEach(func() {
		source = &countingSource{}
		broadcaster = broadcast.New(source)
	})

	It("should be a no-op without observers", func() {
		broadcaster.Broadcast()
		Expect(source.calls).To(BeZero())
	})

	It("should publish the same update to every observer", func() {
		first := &recordingObserver{}
		second := &recordingObserver{}
		broadcaster.Subscribe(first)
		broadcaster.Subscribe(second)

		broadcaster.Broadcast()

		Expect(source.calls).To(Equal(1))
		Expect(first.updates).To(HaveLen(1))
		Expect(second.updates).To(HaveLen(1))
		Expect(first.updates[0].Algorithm).To(Equal("round-robin"))
	})
})
