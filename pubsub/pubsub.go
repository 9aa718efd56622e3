// Package pubsub fans values out to any number of buffered subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the value.
package pubsub

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBuffer is the channel capacity given to each subscriber.
const DefaultBuffer = 16

type SubscriptionID int64

type Pubsub[T any] struct {
	mu          sync.RWMutex
	nextID      SubscriptionID
	buffer      int
	subscribers map[SubscriptionID]chan T
	closed      bool
}

func New[T any]() *Pubsub[T] {
	return NewBuffered[T](DefaultBuffer)
}

func NewBuffered[T any](buffer int) *Pubsub[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Pubsub[T]{
		buffer:      buffer,
		subscribers: make(map[SubscriptionID]chan T),
	}
}

// Subscribe registers a new subscriber. On a closed Pubsub the returned
// channel is already closed.
func (ps *Pubsub[T]) Subscribe() (SubscriptionID, <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan T, ps.buffer)
	if ps.closed {
		close(ch)
		return -1, ch
	}

	id := ps.nextID
	ps.nextID++
	ps.subscribers[id] = ch

	return id, ch
}

func (ps *Pubsub[T]) Unsubscribe(id SubscriptionID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch, ok := ps.subscribers[id]
	if !ok {
		return
	}

	delete(ps.subscribers, id)
	close(ch)
}

// Publish offers msg to every subscriber and returns how many took it.
func (ps *Pubsub[T]) Publish(msg T) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for id, ch := range ps.subscribers {
		select {
		case ch <- msg:
			delivered++
		default:
			log.Warn().
				Str("component", "pubsub").
				Int64("subscription_id", int64(id)).
				Msg("Message dropped, channel full")
		}
	}
	return delivered
}

func (ps *Pubsub[T]) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}

// Close unsubscribes everyone. Later Publish calls are no-ops.
func (ps *Pubsub[T]) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for id, ch := range ps.subscribers {
		delete(ps.subscribers, id)
		close(ch)
	}
	ps.closed = true
}
