package capture

import (
	"sync"

	"github.com/moonlab/bracket/capture"
)

// subscriberBuffer is the number of snapshots a slow subscriber may fall behind
const subscriberBuffer = 16

// Hub fans capture snapshots out to subscribers.  It is a capture.Sink.
// Publish never blocks; a subscriber whose buffer is full misses the snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan capture.Snapshot]struct{}
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan capture.Snapshot]struct{})}
}

// Subscribe returns a channel of snapshots for capture id, or every capture
// if id is "", and a func that ends the subscription
func (h *Hub) Subscribe(id string) (<-chan capture.Snapshot, func()) {
	ch := make(chan capture.Snapshot, subscriberBuffer)
	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan capture.Snapshot]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[id], ch)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of subscriptions to id
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Publish sends s to the subscribers of its capture and of every capture
func (h *Hub) Publish(s capture.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range []string{s.ID, ""} {
		for ch := range h.subs[key] {
			select {
			case ch <- s:
			default:
			}
		}
	}
}
