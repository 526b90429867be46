package consumer

import (
	"context"
	"fmt"
	"time"

	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/queue"
)

// Processor consumes one raw queue payload. Implementations own their error
// handling; a bad payload must not surface here.
type Processor interface {
	ProcessPayload(ctx context.Context, payload []byte)
}

// Consumer drains the detections queue backlog accumulated while the
// processor was offline, then blocks for new events one at a time.
type Consumer struct {
	queue     queue.Queue
	processor Processor
	retryWait time.Duration
}

// New creates a consumer for the detections queue.
func New(q queue.Queue, p Processor) *Consumer {
	return &Consumer{queue: q, processor: p, retryWait: 2 * time.Second}
}

// Run consumes until ctx is cancelled. A queue error restarts the whole
// drain-then-pop cycle instead of exiting.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Errorf("Consume cycle failed, restarting: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryWait):
		}
	}
}

func (c *Consumer) cycle(ctx context.Context) error {
	backlog, err := c.queue.Drain(ctx)
	if err != nil {
		return fmt.Errorf("drain backlog: %w", err)
	}
	if len(backlog) > 0 {
		logger.Infof("Processing %d backlog payloads", len(backlog))
	}
	for _, payload := range backlog {
		metrics.EventsConsumed.Inc()
		c.processor.ProcessPayload(ctx, []byte(payload))
	}

	for {
		payload, err := c.queue.BlockingPop(ctx)
		if err != nil {
			return fmt.Errorf("pop detection: %w", err)
		}
		logger.Debugf("New detection payload")
		metrics.EventsConsumed.Inc()
		c.processor.ProcessPayload(ctx, []byte(payload))
	}
}
