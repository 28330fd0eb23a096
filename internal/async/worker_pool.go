package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/studydeck/internal/common"
)

// WorkerPool runs queued tasks with a per-task timeout.
type WorkerPool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*WorkerPool)

func WithWorkers(n int) Option {
	return func(q *WorkerPool) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *WorkerPool) {
		if n > 0 {
			q.ch = make(chan Task, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *WorkerPool) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewWorkerPool(logger *slog.Logger, opts ...Option) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerPool{
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Task, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerPool) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for task := range q.ch {
					q.run(workerID, task)
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *WorkerPool) run(workerID int, task Task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: task panicked: %v", common.ErrInternal, r)
			}
		}()
		return task.Run(ctx)
	}()

	log := q.logger.With("worker_id", workerID, "task_id", task.ID, "kind", task.Kind,
		"elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Error("async.task.failed", "error", err)
		return
	}
	log.Info("async.task.done", "queued_ms", start.Sub(task.SubmittedAt).Milliseconds())
}

// Enqueue hands task to a worker. It returns ErrQueueFull instead of blocking when the
// buffer is full, and ErrQueueClosed after Shutdown.
func (q *WorkerPool) Enqueue(_ context.Context, task Task) error {
	if task.Run == nil {
		return fmt.Errorf("task %s has no Run func", task.ID)
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "task_id", task.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- task:
		q.logger.Debug("async.enqueue.ok", "task_id", task.ID, "kind", task.Kind, "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("async.enqueue.full", "task_id", task.ID, "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to end.
func (q *WorkerPool) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
