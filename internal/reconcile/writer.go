package reconcile

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/store"
)

// BatchWriter partitions mentor upserts into bounded batches so one bad
// batch does not block the rest of the run's output. Cancellation is
// honored between batches, never mid-batch, to avoid partial record
// corruption. Batches are paced through a rate limiter to respect backend
// write limits.
type BatchWriter struct {
	store   store.Store
	size    int
	limiter *rate.Limiter
}

// NewBatchWriter creates a writer. size <= 0 falls back to 100;
// writesPerSecond <= 0 disables pacing.
func NewBatchWriter(st store.Store, size int, writesPerSecond float64) *BatchWriter {
	if size <= 0 {
		size = 100
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if writesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(writesPerSecond), 1)
	}
	return &BatchWriter{store: st, size: size, limiter: limiter}
}

// WriteResult reports the outcome of a batched write.
type WriteResult struct {
	Written       int
	BatchesFailed int
	Failed        []model.MentorRecord // records from failed batches
}

// WriteMentors upserts mentors batch by batch. A batch failure is isolated:
// its records are collected and reported, and remaining batches still run.
// A context cancellation stops before the next batch and returns ctx.Err().
func (w *BatchWriter) WriteMentors(ctx context.Context, mentors []model.MentorRecord) (WriteResult, error) {
	log := zap.L().With(zap.String("component", "batch_writer"))
	var res WriteResult

	for _, batch := range chunk(mentors, w.size) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return res, err
		}

		n, err := w.store.UpsertMentors(ctx, batch)
		if err != nil {
			res.BatchesFailed++
			res.Failed = append(res.Failed, batch...)
			log.Error("mentor batch failed",
				zap.Int("batch_size", len(batch)),
				zap.String("first_code", batch[0].MentorCode),
				zap.Error(err),
			)
			continue
		}
		res.Written += int(n)
	}
	return res, nil
}

// AppendConflicts inserts conflicts batch by batch with the same isolation
// and cancellation policy as WriteMentors.
func (w *BatchWriter) AppendConflicts(ctx context.Context, conflicts []model.ConflictRecord) (written, batchesFailed int, err error) {
	log := zap.L().With(zap.String("component", "batch_writer"))
	for _, batch := range chunk(conflicts, w.size) {
		if err := ctx.Err(); err != nil {
			return written, batchesFailed, err
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return written, batchesFailed, err
		}
		if err := w.store.InsertConflicts(ctx, batch); err != nil {
			batchesFailed++
			log.Error("conflict batch failed", zap.Int("batch_size", len(batch)), zap.Error(err))
			continue
		}
		written += len(batch)
	}
	return written, batchesFailed, nil
}

// AppendErrors inserts error-log entries batch by batch.
func (w *BatchWriter) AppendErrors(ctx context.Context, entries []model.ErrorLogEntry) (written, batchesFailed int, err error) {
	log := zap.L().With(zap.String("component", "batch_writer"))
	for _, batch := range chunk(entries, w.size) {
		if err := ctx.Err(); err != nil {
			return written, batchesFailed, err
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return written, batchesFailed, err
		}
		if err := w.store.AppendErrors(ctx, batch); err != nil {
			batchesFailed++
			log.Error("error-log batch failed", zap.Int("batch_size", len(batch)), zap.Error(err))
			continue
		}
		written += len(batch)
	}
	return written, batchesFailed, nil
}

// chunk splits records into batches of at most size.
func chunk[T any](records []T, size int) [][]T {
	if len(records) == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
