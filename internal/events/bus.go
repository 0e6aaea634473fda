package events

import "sync"

// allTopics is the internal subscription key used by SubscribeAll.
const allTopics = "*"

// Bus is a channel-based pub-sub event bus. Publishing never blocks: a
// subscriber whose buffer is full misses that event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe returns a channel receiving events published to topic.
// bufSize defaults to 256 if non-positive.
func (b *Bus) Subscribe(topic string, bufSize int) <-chan Event {
	return b.subscribe(topic, bufSize)
}

// SubscribeAll returns a channel receiving events from every topic.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	return b.subscribe(allTopics, bufSize)
}

func (b *Bus) subscribe(key string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[key] = append(b.subs[key], ch)
	return ch
}

// Publish sends an event to topic subscribers and to all-topic subscribers.
func (b *Bus) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.subs[allTopics] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
}
