package queue

import (
	"context"
	"sync"
)

// MemoryQueue is an in-process Queue with the same snapshot-drain semantics
// as the Redis implementation. It backs tests and Redis-less local runs.
type MemoryQueue struct {
	mu      sync.Mutex
	entries []string
	wake    chan struct{}
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{wake: make(chan struct{}, 1)}
}

// Push appends one entry at the tail.
func (q *MemoryQueue) Push(ctx context.Context, payload string) error {
	q.mu.Lock()
	q.entries = append(q.entries, payload)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// BlockingPop waits for the head entry. Only cancellation of ctx interrupts
// the wait.
func (q *MemoryQueue) BlockingPop(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			head := q.entries[0]
			q.entries = append([]string(nil), q.entries[1:]...)
			q.mu.Unlock()
			return head, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.wake:
		}
	}
}

// Drain snapshots the current entries and removes exactly them.
func (q *MemoryQueue) Drain(ctx context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, nil
	}
	snapshot := q.entries
	q.entries = nil
	return snapshot, nil
}

// Len reports the current queue depth.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close is a no-op for the in-process queue.
func (q *MemoryQueue) Close() error {
	return nil
}
