// Package queue provides the work queue connecting directory scanners
// to the batch consumer.
//
// The queue is unbounded and safe for any number of concurrent
// producers with a single logical consumer. Closing the queue signals
// that no more items will be added; the consumer keeps draining until
// the queue is both closed and empty.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of discovered file paths.
type Queue struct {
	mu     sync.Mutex
	items  []string
	closed bool

	// signal wakes the consumer on enqueue; done broadcasts closure.
	signal chan struct{}
	done   chan struct{}
}

// New creates an empty, open Queue.
func New() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue appends a path to the queue.
//
// Returns ErrClosed if the queue has been closed.
func (q *Queue) Enqueue(path string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, path)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue removes and returns the oldest path.
//
// Blocks until an item is available, the queue is closed and drained
// (ErrClosed), or the context is cancelled (the context error).
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			path := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return path, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", ErrClosed
		}

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close marks the queue complete: no more items will be added.
//
// Pending items remain dequeueable. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
