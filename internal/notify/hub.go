package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event names published on the fan-out channel
const (
	EventMessagesBatch     = "messages:batch"
	EventExtractionStarted = "extraction:started"
	EventExtractionUpdated = "extraction:updated"
)

// Event is one fan-out notification
type Event struct {
	Name      string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

const subscriberBuffer = 16

// Hub broadcasts events to currently-subscribed observers. Delivery is
// fire-and-forget, at-most-once per observer: there is no replay for
// observers that subscribe after a publish, and observers whose buffer is
// full are skipped rather than blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers an observer. The returned cancel func must be called
// to release the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber. It never blocks:
// a subscriber with a full buffer is dropped for this event. Returns the
// number of observers reached and skipped.
func (h *Hub) Publish(name string, payload interface{}) (delivered, dropped int) {
	event := Event{Name: name, Payload: payload, Timestamp: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		logrus.Warnf("Dropped %s notification for %d slow observers", name, dropped)
	}
	return delivered, dropped
}

// SubscriberCount returns the number of currently connected observers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
