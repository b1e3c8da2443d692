// Package queue carries evaluation job identifiers from the HTTP trigger to the worker pool.
package queue

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Dequeue when no job arrived within the poll window.
var ErrEmpty = errors.New("queue empty")

// JobQueue is a FIFO of job identifiers.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (string, error)
}
