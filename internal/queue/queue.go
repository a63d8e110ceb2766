// Package queue provides the unbounded FIFO that hands readings from the
// ingestion worker to the control worker.
package queue

import "sync"

// Queue is an unbounded, mutex-guarded FIFO. The zero value is ready to use.
type Queue[T any] struct {
	mu   sync.Mutex
	data []T
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.data = append(q.data, items...)
	q.mu.Unlock()
}

// Drain removes and returns up to max items from the head without
// blocking. max <= 0 drains everything. An empty queue returns nil.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]T, max)
	copy(out, q.data[:max])

	// Drop the backing array once empty.
	if max == len(q.data) {
		q.data = nil
	} else {
		q.data = append(q.data[:0], q.data[max:]...)
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}
