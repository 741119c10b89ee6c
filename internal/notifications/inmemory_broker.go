package notifications

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	handler EventHandler
}

// envelope pairs an event with the topic it was published on while it sits
// in the delivery queue.
type envelope struct {
	topic string
	event Event
}

// InMemoryBroker is the MessageBroker used when no Kafka brokers are
// configured: one buffered queue drained by a single delivery goroutine,
// so handlers for one event never run concurrently with each other.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // keyed by topic
	closed bool
	queue  chan envelope
	done   chan struct{}
}

// NewInMemoryBroker starts the delivery goroutine immediately; Close stops
// it again.
func NewInMemoryBroker() *InMemoryBroker {
	b := &InMemoryBroker{
		subs:  make(map[string][]subscription),
		queue: make(chan envelope, 1024),
		done:  make(chan struct{}),
	}
	go b.deliver()
	return b
}

// Publish queues the event. Delivery order within a topic follows publish
// order.
func (b *InMemoryBroker) Publish(topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	b.queue <- envelope{topic: topic, event: event}
	return nil
}

// Subscribe adds a handler for topic and returns its subscription id.
func (b *InMemoryBroker) Subscribe(topic string, handler EventHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("broker is closed")
	}

	id := uuid.New().String()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	return id, nil
}

// Close drains nothing further: the queue is closed and Close waits for
// the delivery goroutine to finish the events already queued. Calling it
// twice is harmless.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	close(b.queue)
	<-b.done
	return nil
}

func (b *InMemoryBroker) deliver() {
	defer close(b.done)

	for env := range b.queue {
		// Snapshot the handler list so subscriptions added mid-delivery
		// do not race, then call handlers outside the lock.
		b.mu.RLock()
		handlers := make([]EventHandler, 0, len(b.subs[env.topic]))
		for _, s := range b.subs[env.topic] {
			handlers = append(handlers, s.handler)
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			h(env.event)
		}
	}
}
