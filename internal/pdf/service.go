package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/studydeck/internal/async"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
)

// Upload is one file received from a client. Size is the declared size; when zero the
// length of Data is used.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Enqueuer schedules background tasks. Enqueue must not block.
type Enqueuer interface {
	Enqueue(ctx context.Context, task async.Task) error
}

var _ Enqueuer = (*async.WorkerPool)(nil)

// Service accepts uploads, records the initial job and schedules extraction.
type Service struct {
	store    jobs.Store
	queue    Enqueuer
	worker   *Worker
	maxBytes int64
	logger   *slog.Logger
	newID    func() string
}

func NewService(store jobs.Store, queue Enqueuer, worker *Worker, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		queue:    queue,
		worker:   worker,
		maxBytes: maxBytes,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Submit validates u, writes the processing(0) record and queues extraction. It returns the
// job id immediately; the outcome is only observable through the job store.
func (s *Service) Submit(ctx context.Context, u Upload) (string, error) {
	size := u.Size
	if size == 0 {
		size = int64(len(u.Data))
	}
	if err := ValidateUpload(u.Filename, u.ContentType, size, u.Data, s.maxBytes); err != nil {
		return "", err
	}
	if !s.store.Available() {
		return "", fmt.Errorf("%w: job store is not configured", common.ErrUnavailable)
	}

	id := s.newID()
	log := s.logger.With("job_id", id, "filename", u.Filename, "bytes", size)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("req_id", rid)
	}

	job := jobs.NewJob(id, time.Now())
	if err := s.store.Set(ctx, job); err != nil {
		log.Error("pdf.job.create_failed", "error", err)
		return "", err
	}

	data := u.Data
	err := s.queue.Enqueue(ctx, async.Task{
		ID:   id,
		Kind: "pdf-extract",
		Run: func(ctx context.Context) error {
			return s.worker.Process(ctx, job, data)
		},
	})
	if err != nil {
		log.Error("pdf.job.enqueue_failed", "error", err)
		if failed, ferr := job.Fail("PDF extraction could not be scheduled: "+err.Error(), time.Now()); ferr == nil {
			_ = s.store.Set(context.WithoutCancel(ctx), failed)
		}
		if errors.Is(err, async.ErrQueueFull) || errors.Is(err, async.ErrQueueClosed) {
			return "", fmt.Errorf("%w: %w", common.ErrUnavailable, err)
		}
		return "", err
	}

	log.Info("pdf.job.queued")
	return id, nil
}

// Status returns the current record of a job.
func (s *Service) Status(ctx context.Context, id string) (jobs.Job, error) {
	if !s.store.Available() {
		return jobs.Job{}, common.ErrUnavailable
	}
	return s.store.Get(ctx, id)
}
