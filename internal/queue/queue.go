// Package queue holds the small thread-safe FIFO used to hand hydrate requests to
// the loader and hydrate results back to the frame thread.
package queue

import (
	"errors"
	"sync"
)

// ErrFull is returned by Offer when a bounded queue is at capacity.
var ErrFull = errors.New("queue full")

// Queue is a generic thread-safe FIFO. A zero limit means unbounded.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
	ready chan struct{}
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return NewBounded[T](0)
}

// NewBounded creates a queue holding at most limit items.
func NewBounded[T any](limit int) *Queue[T] {
	if limit < 0 {
		limit = 0
	}
	return &Queue[T]{
		items: make([]T, 0, limit),
		limit: limit,
		ready: make(chan struct{}, 1),
	}
}

// Push appends items, past the limit if there is one. Use Offer to respect it.
func (q *Queue[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	q.signal()
}

// Offer appends item unless the queue is full.
func (q *Queue[T]) Offer(item T) error {
	q.mu.Lock()
	if q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrFull
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after items are added. One signal may stand for several items,
// so receivers should drain with GetAndEmpty or TryPop until empty.
func (q *Queue[T]) Ready() <-chan struct{} { return q.ready }

// Pop removes and returns the first item. Returns zero value if empty.
func (q *Queue[T]) Pop() T {
	item, _ := q.TryPop()
	return item
}

// TryPop removes and returns the first item and whether there was one.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Limit is the capacity given to NewBounded, zero when unbounded.
func (q *Queue[T]) Limit() int { return q.limit }

// Clear removes all items from the queue.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, max(q.limit, len(result)))
	return result
}
