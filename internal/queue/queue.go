// Package queue provides the bounded FIFO used by ports to hold buffer
// headers awaiting processing.
package queue

import (
	"errors"
	"sync"

	"code.hybscloud.com/lfq"
)

// ErrFull is returned when the queue already holds as many elements as its
// capacity allows.
var ErrFull = errors.New("queue is full")

// ErrEmpty is returned when there is nothing to pop.
var ErrEmpty = errors.New("queue is empty")

// Queue is a fixed-capacity FIFO. It is safe for concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	ring     *lfq.SPSC[T]
	capacity int
	length   int
}

// New returns a queue bounded to exactly capacity elements.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		panic("queue: capacity must be positive")
	}
	// lfq rounds up to a power of two and needs at least 2 slots, the
	// exact bound is enforced by length.
	size := capacity
	if size < 2 {
		size = 2
	}
	return &Queue[T]{
		ring:     lfq.NewSPSC[T](size),
		capacity: capacity,
	}
}

// Push appends v to the tail of the queue.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.length == q.capacity {
		return ErrFull
	}
	if err := q.ring.Enqueue(&v); err != nil {
		return ErrFull
	}
	q.length++
	return nil
}

// Pop removes the head of the queue.
func (q *Queue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, err := q.ring.Dequeue()
	if err != nil {
		var zero T
		return zero, ErrEmpty
	}
	q.length--
	return v, nil
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Cap returns the capacity the queue was created with.
func (q *Queue[T]) Cap() int {
	return q.capacity
}
