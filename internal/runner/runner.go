// Package runner drives resumable batch jobs: it pulls ordered batches
// from the store, hands them to a domain worker, and commits outcomes
// plus the checkpoint atomically. Workers never see checkpoints or job
// status; they only turn rows into per-item outcomes.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"samplevault/internal/errors"
	"samplevault/internal/selection"
	"samplevault/internal/store"
	"samplevault/internal/ui"
)

// Worker is the domain worker contract. Process handles one batch and
// returns one outcome per item; returning an error fails the whole job.
// A single bad item must come back as a failed outcome instead, so the
// checkpoint still advances past it.
type Worker interface {
	// Gate names the version column this worker stamps and the version
	// it writes. Rows already at that version are skipped.
	Gate() (selection.VersionField, string)

	// Process turns one batch of rows into per-item outcomes.
	Process(ctx context.Context, items []store.FileRow) ([]store.Outcome, error)

	// Finish runs after the selection is exhausted, before the job is
	// marked done.
	Finish(ctx context.Context) error

	// Close releases the worker's resources (locks, backends). The
	// runner calls it exactly once, on every exit path, including pause
	// and failure.
	Close() error
}

// DefaultBatchSize is used when the configured batch size is not positive.
const DefaultBatchSize = 200

// Runner executes one job at a time against the store.
type Runner struct {
	store     *store.Store
	batchSize int
	renderer  ui.Renderer
}

// New creates a runner. renderer may be nil for silent runs.
func New(st *store.Store, batchSize int, renderer ui.Renderer) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Runner{store: st, batchSize: batchSize, renderer: renderer}
}

// Run executes the job until its selection is exhausted, the context is
// cancelled (job PAUSED, resumable), or a fatal error occurs (job
// FAILED, message kept). The returned error is non-nil only for the
// fatal case and for store-level breakage.
func (r *Runner) Run(ctx context.Context, jobID int64, w Worker) error {
	// A paused INDEX job must release its index lock so a later resume
	// in the same process can reacquire it.
	defer func() {
		if err := w.Close(); err != nil {
			slog.Error("worker_close_error",
				slog.Int64("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}()

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.Resumable() {
		return errors.New(errors.ErrCodeJobConflict,
			fmt.Sprintf("job %d is %s and cannot run", jobID, job.Status), nil)
	}
	sel, err := selection.Parse(job.Selection)
	if err != nil {
		return err
	}
	field, version := w.Gate()
	gate := selection.Gate{Field: field, Version: version}

	// Counters resume from the record, so total stays consistent across
	// pause/resume cycles.
	remaining, err := r.store.CountSelection(ctx, sel, gate, job.Checkpoint)
	if err != nil {
		return err
	}
	total := job.Processed + job.Failed + remaining
	if err := r.store.StartJob(ctx, jobID, total); err != nil {
		return err
	}
	slog.Info("job_started",
		slog.Int64("job_id", jobID),
		slog.String("type", string(job.Type)),
		slog.Int64("total", total),
		slog.Int64("checkpoint", job.Checkpoint))

	processed := job.Processed
	failed := job.Failed
	checkpoint := job.Checkpoint
	for {
		// Cancellation is observed once per iteration; an in-flight
		// batch always commits before the pause lands.
		select {
		case <-ctx.Done():
			if err := r.store.MarkPaused(context.WithoutCancel(ctx), jobID); err != nil {
				return err
			}
			r.progressDone(fmt.Sprintf("job %d paused at %d/%d", jobID, processed+failed, total))
			return nil
		default:
		}

		batch, err := r.store.NextBatch(ctx, sel, gate, checkpoint, r.batchSize)
		if err != nil {
			return r.fail(ctx, jobID, err)
		}
		if len(batch) == 0 {
			if err := w.Finish(ctx); err != nil {
				return r.fail(ctx, jobID, err)
			}
			if err := r.store.MarkDone(ctx, jobID); err != nil {
				return err
			}
			r.progressDone(fmt.Sprintf("job %d done: %d processed, %d failed", jobID, processed, failed))
			return nil
		}
		if sel.Mode == selection.ModeFiles {
			if err := r.store.EnsureJobItems(ctx, jobID, batch); err != nil {
				return r.fail(ctx, jobID, err)
			}
		}

		outcomes, err := w.Process(ctx, batch)
		if err != nil {
			return r.fail(ctx, jobID, err)
		}
		if len(outcomes) != len(batch) {
			return r.fail(ctx, jobID, errors.InternalError(
				fmt.Sprintf("worker returned %d outcomes for %d items", len(outcomes), len(batch)), nil))
		}

		// Commit survives cancellation: once a batch is processed its
		// outcomes and checkpoint are persisted, then the pause lands.
		checkpoint = batch[len(batch)-1].ID
		if err := r.store.CommitBatch(context.WithoutCancel(ctx), jobID, field, version, outcomes, checkpoint); err != nil {
			return r.fail(ctx, jobID, err)
		}
		for _, o := range outcomes {
			if o.Failed {
				failed++
			} else {
				processed++
			}
		}
		r.progress(processed, failed, total, fmt.Sprintf("checkpoint %d", checkpoint))
		slog.Debug("batch_committed",
			slog.Int64("job_id", jobID),
			slog.Int("batch", len(batch)),
			slog.Int64("checkpoint", checkpoint))
	}
}

// fail persists FAILED with the message and hands the error back. The
// checkpoint keeps whatever the last successful commit stored, so a
// re-run skips completed work.
func (r *Runner) fail(ctx context.Context, jobID int64, cause error) error {
	if err := r.store.MarkFailed(context.WithoutCancel(ctx), jobID, cause.Error()); err != nil {
		slog.Error("mark_failed_error",
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()))
	}
	slog.Error("job_failed",
		slog.Int64("job_id", jobID),
		slog.String("error", cause.Error()))
	return cause
}

func (r *Runner) progress(processed, failed, total int64, message string) {
	if r.renderer != nil {
		r.renderer.Progress(processed, failed, total, message)
	}
}

func (r *Runner) progressDone(message string) {
	if r.renderer != nil {
		r.renderer.Done(message)
	}
}
