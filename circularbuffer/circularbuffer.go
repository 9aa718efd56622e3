// Package circularbuffer keeps the last N values pushed into it.
package circularbuffer

import "sync"

type CircularBuffer[T any] struct {
	mu       sync.Mutex
	values   []T
	position int
	full     bool
}

func New[T any](size int) *CircularBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &CircularBuffer[T]{
		values: make([]T, size),
	}
}

func (cb *CircularBuffer[T]) Push(element T) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.values[cb.position] = element
	cb.position++

	if cb.position >= len(cb.values) {
		cb.position = 0
		cb.full = true
	}
}

// Len is the number of values currently held.
func (cb *CircularBuffer[T]) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.full {
		return len(cb.values)
	}
	return cb.position
}

// Items returns a copy of the held values, oldest first.
func (cb *CircularBuffer[T]) Items() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.full {
		out := make([]T, cb.position)
		copy(out, cb.values[:cb.position])
		return out
	}

	out := make([]T, 0, len(cb.values))
	out = append(out, cb.values[cb.position:]...)
	out = append(out, cb.values[:cb.position]...)
	return out
}
