package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
)

// Worker extracts one uploaded document and records each stage in the job store.
type Worker struct {
	store     jobs.Store
	extractor TextExtractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewWorker(store jobs.Store, extractor TextExtractor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, extractor: extractor, logger: logger, now: time.Now}
}

// Process moves job from 30 to 70 to completed, or to failed on any extraction error, store
// write error or panic. The returned error is that failure; it has already been recorded on
// the job when the failed write itself succeeds.
func (w *Worker) Process(ctx context.Context, job jobs.Job, data []byte) (err error) {
	start := w.now()
	log := w.logger.With("job_id", job.ID, "bytes", len(data))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: extraction panicked: %v", common.ErrInternal, r)
			log.Error("pdf.job.panic", "panic", r)
		}
		if err != nil {
			w.fail(log, job, err)
		}
	}()

	if job, err = job.Advance(constants.ProgressReading, w.now()); err != nil {
		return err
	}
	if err = w.save(ctx, log, job); err != nil {
		return err
	}

	res, err := w.extractor.ExtractText(ctx, data)
	if err != nil {
		return err
	}

	if job, err = job.Advance(constants.ProgressExtracted, w.now()); err != nil {
		return err
	}
	if err = w.save(ctx, log, job); err != nil {
		return err
	}

	// job stays at processing(70) so a failed completed write can still be turned into failed.
	done, err := job.Complete(res.Text, res.Pages, w.now())
	if err != nil {
		return err
	}
	if err = w.save(ctx, log, done); err != nil {
		return err
	}

	log.Info("pdf.job.completed", "pages", res.Pages, "chars", len(res.Text),
		"elapsed_ms", w.now().Sub(start).Milliseconds())
	return nil
}

func (w *Worker) save(ctx context.Context, log *slog.Logger, job jobs.Job) error {
	if err := w.store.Set(ctx, job); err != nil {
		log.Error("pdf.job.write_failed", "status", job.Status, "progress", job.Progress, "error", err)
		return common.WrapError(err, fmt.Sprintf("write job %s at %d", job.ID, job.Progress))
	}
	log.Debug("pdf.job.progress", "status", job.Status, "progress", job.Progress)
	return nil
}

func (w *Worker) fail(log *slog.Logger, job jobs.Job, cause error) {
	failed, err := job.Fail(failureMessage(cause), w.now())
	if err != nil {
		log.Error("pdf.job.fail_transition", "error", err)
		return
	}
	// The task context may already be done; the failure must still be recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.save(ctx, log, failed); err != nil {
		log.Error("pdf.job.fail_unrecorded", "cause", cause, "error", err)
		return
	}
	log.Warn("pdf.job.failed", "error", cause)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "PDF extraction timed out"
	case errors.Is(err, context.Canceled):
		return "PDF extraction was cancelled"
	default:
		return err.Error()
	}
}
