// Package limiter provides a counting semaphore used to bound the
// number of directory listings in flight during a scan.
//
// The implementation is a buffered channel of tokens, which gives
// approximately-fair FIFO ordering for goroutines blocked in Acquire.
package limiter

import "context"

// Limiter is a counting semaphore with a fixed capacity.
type Limiter struct {
	tokens   chan struct{}
	capacity int
}

// New creates a Limiter with the given capacity.
//
// A capacity below 1 is treated as 1.
func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		tokens:   make(chan struct{}, capacity),
		capacity: capacity,
	}
}

// Acquire obtains a permit, blocking until one is available or the
// context is cancelled. Returns the context error on cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a previously acquired permit.
//
// Releasing more permits than were acquired panics, since it indicates
// a bookkeeping bug in the caller.
func (l *Limiter) Release() {
	select {
	case <-l.tokens:
	default:
		panic("limiter: release without matching acquire")
	}
}

// Capacity returns the maximum number of concurrently held permits.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InUse returns the number of permits currently held.
func (l *Limiter) InUse() int {
	return len(l.tokens)
}
