package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/queue"
)

// consumer implements the Consumer interface.
type consumer struct {
	logger logger.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(log logger.Logger) Consumer {
	return &consumer{logger: log}
}

// Consume implements Consumer.Consume.
func (c *consumer) Consume(ctx context.Context, q *queue.Queue, handler BatchHandler, batchSize int) error {
	if batchSize < 1 {
		return ErrInvalidBatchSize
	}

	batch := make([]string, 0, batchSize)
	var lastDispatch time.Time

	for {
		path, err := q.Dequeue(ctx)
		if errors.Is(err, queue.ErrClosed) {
			// Trailing partial batch goes out once, without pacing.
			if len(batch) > 0 {
				c.logger.Debug("dispatching trailing batch", "size", len(batch))
				if handlerErr := handler(ctx, batch); handlerErr != nil {
					return fmt.Errorf("batch handler failed: %w", handlerErr)
				}
			}
			return nil
		}
		if err != nil {
			return err
		}

		batch = append(batch, path)
		if len(batch) < batchSize {
			continue
		}

		// A batch filling up right on the heels of the previous
		// dispatch means the queue is bursting; slow down in
		// proportion to the batch size so the downstream sink is not
		// hammered with back-to-back dispatches.
		if !lastDispatch.IsZero() && time.Since(lastDispatch) < rapidDispatchThreshold {
			delay := dispatchDelayPerItem * time.Duration(batchSize)
			c.logger.Debug("pacing batch dispatch", "delay", delay)
			if sleepErr := sleepContext(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}

		if handlerErr := handler(ctx, batch); handlerErr != nil {
			return fmt.Errorf("batch handler failed: %w", handlerErr)
		}
		lastDispatch = time.Now()

		// The handler may retain the slice, so start a fresh one.
		batch = make([]string, 0, batchSize)
	}
}
