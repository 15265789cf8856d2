package worker

import (
	"context"
	"fmt"
	"log/slog"

	"samplevault/internal/embed"
	"samplevault/internal/errors"
	"samplevault/internal/runner"
	"samplevault/internal/selection"
	"samplevault/internal/shard"
	"samplevault/internal/store"
)

// IndexWorker embeds audio items and appends their vectors to the
// chunked index. Vectors are flushed to disk before the batch outcome
// is returned, so a stamped embed_version always has a durable vector
// behind it.
type IndexWorker struct {
	store    *store.Store
	embedder embed.Embedder
	writer   *shard.Writer
	jobID    int64
	closed   bool
}

var _ runner.Worker = (*IndexWorker)(nil)

// NewIndexWorker opens the index for appending with the embedder's
// dimensions. The caller owns the store; the worker owns the writer and
// the embedder and releases both in Close.
func NewIndexWorker(st *store.Store, e embed.Embedder, indexDir, baseName string, chunkSize int, jobID int64) (*IndexWorker, error) {
	w, err := shard.NewWriter(indexDir, baseName, e.Dimensions(), chunkSize)
	if err != nil {
		return nil, err
	}
	return &IndexWorker{store: st, embedder: e, writer: w, jobID: jobID}, nil
}

func (w *IndexWorker) Gate() (selection.VersionField, string) {
	return selection.FieldEmbed, w.embedder.ModelName()
}

func (w *IndexWorker) Process(ctx context.Context, items []store.FileRow) ([]store.Outcome, error) {
	paths := make([]string, len(items))
	for i, item := range items {
		paths[i] = item.Path
	}
	vecs, err := w.embedder.EmbedBatch(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(items) {
		return nil, errors.InternalError(
			fmt.Sprintf("embedder returned %d vectors for %d items", len(vecs), len(items)), nil)
	}

	for i, item := range items {
		info, err := w.writer.Add(item.ID, item.Key, vecs[i])
		if err != nil {
			return nil, err
		}
		if info != nil {
			if err := w.recordShard(ctx, info); err != nil {
				return nil, err
			}
		}
	}
	// The batch's vectors must be durable before the runner stamps
	// embed_version for them.
	if w.writer.Pending() > 0 {
		info, err := w.writer.Flush()
		if err != nil {
			return nil, err
		}
		if err := w.recordShard(ctx, info); err != nil {
			return nil, err
		}
	}

	out := make([]store.Outcome, len(items))
	for i, item := range items {
		out[i] = store.Outcome{FileID: item.ID}
	}
	return out, nil
}

func (w *IndexWorker) Finish(ctx context.Context) error {
	return nil
}

// Close releases the index lock and the embedder. Safe to call after
// any exit path; every Process call has already flushed its vectors.
func (w *IndexWorker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.writer.Close()
	if cerr := w.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *IndexWorker) recordShard(ctx context.Context, info *shard.Info) error {
	jobID := w.jobID
	row := store.ShardRow{
		Path:         info.Name,
		Count:        info.Count,
		MinOrdinal:   info.MinOrdinal,
		MaxOrdinal:   info.MaxOrdinal,
		ModelVersion: w.embedder.ModelName(),
		JobID:        &jobID,
	}
	if _, err := w.store.AddShard(ctx, row); err != nil {
		return err
	}
	slog.Info("shard_written",
		slog.String("shard", info.Name),
		slog.Int64("count", info.Count),
		slog.Int64("job_id", w.jobID))
	return nil
}
