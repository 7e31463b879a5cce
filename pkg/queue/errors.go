package queue

import "errors"

// ErrClosed is returned by Enqueue on a closed queue, and by Dequeue
// once a closed queue has been fully drained.
var ErrClosed = errors.New("queue is closed")
