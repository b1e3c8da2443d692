package queue

import (
	"context"
	"fmt"
	"time"
)

// MemoryQueue is an in-process queue used when Redis is not configured.
// Queued jobs are lost on restart; the worker recovers them from the job table.
type MemoryQueue struct {
	items       chan string
	pollTimeout time.Duration
}

// NewMemoryQueue creates a buffered in-memory queue.
func NewMemoryQueue(capacity int, pollTimeout time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &MemoryQueue{items: make(chan string, capacity), pollTimeout: pollTimeout}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.items <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("enqueue job %s: memory queue full", jobID)
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	timer := time.NewTimer(q.pollTimeout)
	defer timer.Stop()

	select {
	case id := <-q.items:
		return id, nil
	case <-timer.C:
		return "", ErrEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len reports the number of queued jobs.
func (q *MemoryQueue) Len() int {
	return len(q.items)
}
