// Package async runs fire-and-forget tasks on a fixed pool of workers.
package async

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueueFull is returned by Enqueue when no buffer slot is free.
	ErrQueueFull = errors.New("task queue is full")
	// ErrQueueClosed is returned by Enqueue after Shutdown has started.
	ErrQueueClosed = errors.New("task queue is shutting down")
)

// Task is the smallest useful unit of background work.
type Task struct {
	ID          string
	Kind        string
	SubmittedAt time.Time
	Run         func(ctx context.Context) error
}
