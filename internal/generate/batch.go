package generate

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

// ChunkSize returns how many items one model call may request. Harder material produces longer
// items, so high difficulties are split into smaller batches to stay within the token ceiling.
func ChunkSize(difficulty, count int) int {
	switch {
	case difficulty >= 5:
		return min(5, count)
	case difficulty == 4:
		return min(7, count)
	default:
		return count
	}
}

// fetchFunc performs one model call for n items. collected holds what earlier batches returned.
type fetchFunc[T any] func(ctx context.Context, n int, collected []T) ([]T, error)

// batchState tracks one top-level request. It is never shared between requests.
type batchState[T any] struct {
	op               constants.Operation
	target           int
	chunk            int
	total            int
	items            []T
	batchesAttempted int
	batchesSucceeded int
}

func newBatchState[T any](op constants.Operation, target, difficulty int) *batchState[T] {
	chunk := ChunkSize(difficulty, target)
	total := 1
	if chunk > 0 && target > chunk {
		total = (target + chunk - 1) / chunk
	}
	return &batchState[T]{op: op, target: target, chunk: chunk, total: total}
}

func (b *batchState[T]) meta() GenerationMeta {
	return GenerationMeta{
		Requested:        b.target,
		Delivered:        len(b.items),
		Batches:          b.batchesAttempted,
		BatchesSucceeded: b.batchesSucceeded,
		Truncated:        len(b.items) < b.target,
	}
}

// runBatches requests target items in sequential chunks. A request that fits in one chunk is a
// single call without progress callbacks. When a later batch fails the items collected so far are
// returned; when nothing was collected the batch error is returned unchanged.
func runBatches[T any](ctx context.Context, log *slog.Logger, b *batchState[T], onProgress ProgressFunc, fetch fetchFunc[T]) ([]T, GenerationMeta, error) {
	log = log.With("op", b.op, "requested", b.target, "chunk", b.chunk)

	if b.target <= b.chunk {
		b.batchesAttempted = 1
		items, err := fetch(ctx, b.target, nil)
		if err != nil {
			return nil, b.meta(), err
		}
		b.batchesSucceeded = 1
		b.items = items
		return b.items, b.meta(), nil
	}

	log.Info("generate.batch.plan", "batches", b.total)
	for i := 0; i < b.total; i++ {
		remaining := b.target - len(b.items)
		if remaining <= 0 {
			break
		}
		n := min(b.chunk, remaining)

		if onProgress != nil {
			onProgress(i+1, b.total)
		}

		start := time.Now()
		b.batchesAttempted++
		items, err := fetch(ctx, n, b.items)
		if err != nil {
			if len(b.items) > 0 {
				log.Warn("generate.batch.failed", "batch", i+1, "total", b.total,
					"delivered", len(b.items), "error", err)
				break
			}
			log.Error("generate.batch.failed", "batch", i+1, "total", b.total, "error", err)
			return nil, b.meta(), err
		}
		b.batchesSucceeded++
		b.items = append(b.items, items...)
		log.Info("generate.batch.ok", "batch", i+1, "total", b.total, "items", len(items),
			"collected", len(b.items), "elapsed_ms", time.Since(start).Milliseconds())
	}

	m := b.meta()
	if m.Truncated {
		log.Warn("generate.batch.partial", "delivered", m.Delivered)
	}
	return b.items, m, nil
}

func requestLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := common.LoggerFromContext(ctx, base)
	if id := common.RequestIDFromContext(ctx); id != "" {
		l = l.With("req_id", id)
	}
	return l
}
