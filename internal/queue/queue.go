package queue

import "context"

// Queue is a durable FIFO list. Push appends one entry, BlockingPop waits
// indefinitely for the oldest entry, Drain atomically snapshots the current
// contents and removes exactly what was read. Entries pushed while a drain is
// in flight stay behind for the next pass.
type Queue interface {
	Push(ctx context.Context, payload string) error
	BlockingPop(ctx context.Context) (string, error)
	Drain(ctx context.Context) ([]string, error)
	Close() error
}
