package audit

import (
	"sync"
	"sync/atomic"

	"github.com/SakshiM22/secure-vault/internal/server/models"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 64

// Hub fans events out to in-process subscribers. Publish never blocks: an
// event that does not fit a subscriber's buffer is dropped for that
// subscriber only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	next   uint64
	buf    int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscription), buf: buffer}
}

type Subscription struct {
	C <-chan models.AuditEvent

	ch      chan models.AuditEvent
	hub     *Hub
	id      uint64
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a subscriber that sees events published from now on.
// On a closed hub the returned subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan models.AuditEvent, h.buf)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(ch) })
		return s
	}
	h.next++
	s.id = h.next
	h.subs[s.id] = s
	return s
}

func (h *Hub) Publish(ev models.AuditEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription; later Subscribe calls get closed ones.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.closed = true
	h.mu.Unlock()

	for _, s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Close deregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.ch)
	})
}

// Dropped reports how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
