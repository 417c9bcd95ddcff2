package pubsub

import (
	"context"
	"sync"
)

// subscriber channels are buffered so a slow consumer cannot stall
// publishers; events beyond the buffer are dropped for that subscriber.
const subscriberBuffer = 64

type Broker[T any] struct {
	mu       sync.RWMutex
	subs     map[chan Event[T]]struct{}
	done     chan struct{}
	shutOnce sync.Once
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe registers a new subscriber. The subscription is removed when
// ctx is cancelled or the broker shuts down, whichever comes first.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	ch := make(chan Event[T], subscriberBuffer)
	b.subs[ch] = struct{}{}

	go func() {
		select {
		case <-b.done:
			// Shutdown closes all subscriber channels.
			return
		case <-ctx.Done():
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()

	return ch
}

// Publish delivers an event to every current subscriber. Delivery is
// best-effort: a subscriber with a full buffer misses the event.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Shutdown closes all subscriber channels and rejects future subscriptions.
func (b *Broker[T]) Shutdown() {
	b.shutOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		for ch := range b.subs {
			delete(b.subs, ch)
			close(ch)
		}
	})
}

// GetSubscriberCount reports how many subscriptions are currently active.
func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
