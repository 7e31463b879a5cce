// Package scanner provides the bulk discovery pipeline: a recursive
// directory scanner that streams matching file paths into a work
// queue, and a batch consumer that drains the queue into fixed-size
// batches for a downstream handler.
//
// Scanning is bounded by a shared concurrency limiter so that at most
// the configured number of directory listings are in flight at once,
// regardless of how wide the tree fans out.
//
// Example usage:
//
//	lim := limiter.New(4)
//	exts := filter.NewSet([]string{".log"})
//	q := queue.New()
//
//	s := scanner.New(scanner.Config{Limiter: lim, Extensions: exts}, logger.Default())
//	c := scanner.NewConsumer(logger.Default())
//
//	go func() {
//	    defer q.Close()
//	    _ = s.Scan(ctx, "/var/data", true, q)
//	}()
//	err := c.Consume(ctx, q, handler, 50)
package scanner

import (
	"context"
	"time"

	"github.com/0xrjw/file-agent/pkg/filter"
	"github.com/0xrjw/file-agent/pkg/limiter"
	"github.com/0xrjw/file-agent/pkg/queue"
)

// Pacing constants. The enqueue pause keeps a single huge directory
// from saturating the queue producer; the directory pacing unit is
// multiplied by limiter capacity and the configured multiplier to
// smooth load between listings; the dispatch threshold and per-item
// delay throttle rapid back-to-back batch dispatches.
const (
	enqueuePause           = 100 * time.Microsecond
	directoryPacingUnit    = 5 * time.Millisecond
	rapidDispatchThreshold = 100 * time.Millisecond
	dispatchDelayPerItem   = 2 * time.Millisecond
)

// BatchHandler receives one flushed batch of file paths.
//
// A non-nil error aborts the consumer; the consumer itself never
// retries a failed batch.
type BatchHandler func(ctx context.Context, paths []string) error

// Scanner walks directory trees and enqueues matching file paths.
type Scanner interface {
	// Scan enumerates files under root, enqueueing every path whose
	// extension passes the filter. If recursive is true, immediate
	// subdirectories are scanned concurrently, each holding its own
	// limiter permit only while its listing is in flight.
	//
	// Enumeration failures are logged and skipped; Scan only returns
	// an error when the context is cancelled or the queue is closed
	// underneath it.
	Scan(ctx context.Context, root string, recursive bool, q *queue.Queue) error
}

// Consumer drains a work queue into batches.
type Consumer interface {
	// Consume dequeues paths into batches of batchSize and dispatches
	// each full batch to handler. When the queue is closed and
	// drained, any trailing partial batch is dispatched once without
	// pacing. Handler errors propagate to the caller.
	Consume(ctx context.Context, q *queue.Queue, handler BatchHandler, batchSize int) error
}

// Config contains scanner configuration.
type Config struct {
	// Limiter bounds concurrent directory listings. Required.
	Limiter *limiter.Limiter

	// Extensions filters enqueued files. A nil or empty set allows
	// every file.
	Extensions *filter.Set

	// PacingMultiplier scales the inter-directory pacing delay.
	// Default: 1. Zero means the default; negative disables pacing.
	PacingMultiplier int
}

// sleepContext waits for d or until ctx is cancelled, whichever comes
// first, returning the context error on cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
