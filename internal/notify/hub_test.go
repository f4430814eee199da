package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	delivered, dropped := hub.Publish(EventMessagesBatch, map[string]interface{}{"count": 3})
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 0, dropped)

	for _, ch := range []<-chan Event{ch1, ch2} {
		event := <-ch
		assert.Equal(t, EventMessagesBatch, event.Name)
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub()

	delivered, _ := hub.Publish(EventExtractionStarted, nil)
	assert.Equal(t, 0, delivered)

	ch, cancel := hub.Subscribe()
	defer cancel()
	select {
	case event := <-ch:
		t.Fatalf("late subscriber must not receive earlier event %q", event.Name)
	default:
	}
}

func TestSlowObserverIsSkippedNotBlocked(t *testing.T) {
	hub := NewHub()

	_, cancelSlow := hub.Subscribe()
	defer cancelSlow()

	// fill the slow observer's buffer without draining it
	for i := 0; i < subscriberBuffer; i++ {
		delivered, dropped := hub.Publish(EventMessagesBatch, i)
		assert.Equal(t, 1, delivered)
		assert.Equal(t, 0, dropped)
	}

	fast, cancelFast := hub.Subscribe()
	defer cancelFast()

	delivered, dropped := hub.Publish(EventMessagesBatch, "overflow")
	assert.Equal(t, 1, delivered, "fast observer still reached")
	assert.Equal(t, 1, dropped, "full observer skipped for this event")

	event := <-fast
	assert.Equal(t, "overflow", event.Payload)
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-ch
	assert.False(t, open, "cancel closes the channel")

	delivered, _ := hub.Publish(EventExtractionUpdated, nil)
	assert.Equal(t, 0, delivered)
}

func TestCancelIsIdempotent(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe()
	cancel()
	assert.NotPanics(t, cancel)
}
