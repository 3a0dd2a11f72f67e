package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

const SinkHub = "hub"

// Subscription is one watcher's view of the hub. Events is never closed;
// receivers stop when Done is closed.
type Subscription struct {
	id     uint64
	events chan bids.Bid
	done   chan struct{}
	once   sync.Once
}

// Events delivers bids published after Subscribe returned.
func (s *Subscription) Events() <-chan bids.Bid {
	return s.events
}

// Done is closed once the subscription is removed from the hub.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans accepted bids out to in-process subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the bid.
type Hub struct {
	subscribers sync.Map // uint64 -> *Subscription
	count       atomic.Int64
	nextID      atomic.Uint64
	buffer      int
}

// NewHub creates a hub giving every subscriber a buffer of the given size.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{buffer: buffer}
}

// Subscribe registers a new watcher.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:     h.nextID.Add(1),
		events: make(chan bids.Bid, h.buffer),
		done:   make(chan struct{}),
	}
	h.subscribers.Store(sub.id, sub)
	h.count.Add(1)
	return sub
}

// Unsubscribe removes a watcher. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if _, loaded := h.subscribers.LoadAndDelete(sub.id); loaded {
		h.count.Add(-1)
	}
	sub.close()
}

// Count returns the number of registered watchers.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Publish offers bid to every current subscriber.
func (h *Hub) Publish(_ context.Context, bid bids.Bid) bids.DeliveryOutcome {
	var delivered, dropped int
	h.subscribers.Range(func(_, value any) bool {
		sub := value.(*Subscription)
		select {
		case <-sub.done:
			return true
		default:
		}
		select {
		case sub.events <- bid:
			delivered++
		default:
			dropped++
		}
		return true
	})
	return bids.OutcomeFromCounts(SinkHub, delivered, dropped)
}

// Close removes every subscriber, releasing their receive loops.
func (h *Hub) Close() {
	h.subscribers.Range(func(_, value any) bool {
		h.Unsubscribe(value.(*Subscription))
		return true
	})
}
