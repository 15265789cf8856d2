package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplevault/internal/errors"
	"samplevault/internal/selection"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedFiles(t *testing.T, s *Store, paths ...string) {
	t.Helper()
	n, err := s.UpsertFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, len(paths), n)
}

var embedGate = selection.Gate{Field: selection.FieldEmbed, Version: "clap-v1"}

func TestUpsertFilesIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertFiles(ctx, []string{"samples/a.wav", "samples/b.wav"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.UpsertFiles(ctx, []string{"samples/a.wav", "samples/c.wav"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.CountSelection(ctx, selection.All(), embedGate, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUpsertDerivesKeyAndName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, `samples\kicks\kick_01.wav`)

	f, err := s.GetFileByKey(ctx, "samples/kicks/kick_01.wav")
	require.NoError(t, err)
	assert.Equal(t, "samples/kicks/kick_01.wav", f.Key)
	assert.Equal(t, "kick_01", f.Name)
}

func TestJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, JobTypeIndex, selection.All(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Zero(t, job.Checkpoint)
	assert.False(t, job.CreatedAt.IsZero())

	require.NoError(t, s.StartJob(ctx, job.ID, 10))
	job, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, int64(10), job.Total)

	require.NoError(t, s.MarkPaused(ctx, job.ID))
	job, _ = s.GetJob(ctx, job.ID)
	assert.Equal(t, StatusPaused, job.Status)
	assert.True(t, job.FinishedAt.IsZero())

	require.NoError(t, s.StartJob(ctx, job.ID, 10))
	require.NoError(t, s.MarkDone(ctx, job.ID))
	job, _ = s.GetJob(ctx, job.ID)
	assert.Equal(t, StatusDone, job.Status)
	assert.False(t, job.FinishedAt.IsZero())

	err = s.StartJob(ctx, job.ID, 10)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeJobConflict, errors.GetCode(err))
}

func TestCreateJobRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateJob(ctx, "SHUFFLE", selection.All(), "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownJobType, errors.GetCode(err))

	_, err = s.CreateJob(ctx, JobTypeTag, selection.ForFiles(nil), "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidSelection, errors.GetCode(err))

	jobs, err := s.ListJobs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMarkFailedKeepsMessageAndCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, JobTypeTranslate, selection.All(), "")
	require.NoError(t, err)
	require.NoError(t, s.StartJob(ctx, job.ID, 5))
	require.NoError(t, s.UpdateProgress(ctx, job.ID, 3, 0, 42))
	require.NoError(t, s.MarkFailed(ctx, job.ID, "provider exhausted"))

	job, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "provider exhausted", job.Error)
	assert.Equal(t, int64(42), job.Checkpoint)
	assert.True(t, job.Status.Resumable())
}

func TestCheckpointNeverMovesBackwards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, JobTypeIndex, selection.All(), "")
	require.NoError(t, err)
	require.NoError(t, s.StartJob(ctx, job.ID, 100))

	require.NoError(t, s.UpdateProgress(ctx, job.ID, 1, 0, 50))
	require.NoError(t, s.UpdateProgress(ctx, job.ID, 1, 0, 30))
	require.NoError(t, s.UpdateProgress(ctx, job.ID, 1, 1, 70))

	job, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), job.Checkpoint)
	assert.Equal(t, int64(3), job.Processed)
	assert.Equal(t, int64(1), job.Failed)
	assert.LessOrEqual(t, job.Processed+job.Failed, job.Total)
}

func TestNextBatchOrderGateAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "a.wav", "b.wav", "c.wav", "d.wav")

	job, err := s.CreateJob(ctx, JobTypeIndex, selection.All(), "")
	require.NoError(t, err)

	batch, err := s.NextBatch(ctx, selection.All(), embedGate, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a.wav", batch[0].Key)
	assert.Equal(t, "b.wav", batch[1].Key)
	assert.Less(t, batch[0].ID, batch[1].ID)

	// Rows already at the gate version are skipped.
	out := []Outcome{{FileID: batch[0].ID}}
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldEmbed, "clap-v1", out, batch[0].ID))

	batch, err = s.NextBatch(ctx, selection.All(), embedGate, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "b.wav", batch[0].Key)

	// Checkpoint excludes everything at or below it.
	batch, err = s.NextBatch(ctx, selection.All(), embedGate, batch[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "d.wav", batch[0].Key)
}

func TestCommitBatchAtomicMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "samples/one.wav", "samples/two.wav", "samples/three.wav")

	job, err := s.CreateJob(ctx, JobTypeTag, selection.All(), "")
	require.NoError(t, err)
	require.NoError(t, s.StartJob(ctx, job.ID, 3))

	tagGate := selection.Gate{Field: selection.FieldTag, Version: "labels-v1"}
	batch, err := s.NextBatch(ctx, selection.All(), tagGate, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	name := "translated"
	outcomes := []Outcome{
		{FileID: batch[0].ID, Tags: []string{"kick", "drum"}},
		{FileID: batch[1].ID, Failed: true, Error: "no embedding"},
		{FileID: batch[2].ID, Tags: []string{}, TranslatedName: &name},
	}
	last := batch[2].ID
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldTag, "labels-v1", outcomes, last))

	job, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), job.Processed)
	assert.Equal(t, int64(1), job.Failed)
	assert.Equal(t, last, job.Checkpoint)

	tags, err := s.TagsForFile(ctx, batch[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"drum", "kick"}, tags)

	// Below-threshold item: zero tags but stamped as processed.
	tags, err = s.TagsForFile(ctx, batch[2].ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	f, err := s.GetFileByKey(ctx, batch[2].Key)
	require.NoError(t, err)
	assert.Equal(t, "labels-v1", f.TagVersion)
	assert.Equal(t, "translated", f.TranslatedName)

	// Failed item keeps an empty version so a later run retries it.
	f, err = s.GetFileByKey(ctx, batch[1].Key)
	require.NoError(t, err)
	assert.Empty(t, f.TagVersion)
}

func TestCommitBatchRename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "samples/old.wav")

	job, err := s.CreateJob(ctx, JobTypeApply, selection.All(), "")
	require.NoError(t, err)
	require.NoError(t, s.StartJob(ctx, job.ID, 1))

	f, err := s.GetFileByKey(ctx, "samples/old.wav")
	require.NoError(t, err)

	newPath := "samples/new.wav"
	outcomes := []Outcome{{FileID: f.ID, NewPath: &newPath}}
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldRename, "r1", outcomes, f.ID))

	moved, err := s.GetFileByKey(ctx, "samples/new.wav")
	require.NoError(t, err)
	assert.Equal(t, newPath, moved.Path)
	assert.Equal(t, "r1", moved.RenameVersion)

	_, err = s.GetFileByKey(ctx, "samples/old.wav")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestJobItemsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "a.wav", "b.wav")

	sel := selection.ForFiles([]string{"a.wav", "b.wav"})
	job, err := s.CreateJob(ctx, JobTypeTranslate, sel, "")
	require.NoError(t, err)

	nameGate := selection.Gate{Field: selection.FieldName, Version: "t-v1"}
	batch, err := s.NextBatch(ctx, sel, nameGate, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, s.EnsureJobItems(ctx, job.ID, batch))
	require.NoError(t, s.EnsureJobItems(ctx, job.ID, batch))

	items, err := s.ListJobItems(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ItemPending, items[0].Status)

	outcomes := []Outcome{
		{FileID: batch[0].ID},
		{FileID: batch[1].ID, Failed: true, Error: "bad name"},
	}
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldName, "t-v1", outcomes, batch[1].ID))

	items, err = s.ListJobItems(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemDone, items[0].Status)
	assert.Equal(t, ItemFailed, items[1].Status)
	assert.Equal(t, "bad name", items[1].Error)
}

func TestSelectionEquivalence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	paths := []string{
		"samples/kicks/kick_01.wav",
		"samples/kicks/808/boom.wav",
		"samples/snares/snare_01.wav",
		"loops/drums/break.wav",
		"vocals/take1.wav",
	}
	seedFiles(t, s, paths...)

	selections := []*selection.Selection{
		selection.All(),
		selection.ForFolders([]string{"samples/kicks"}),
		selection.ForFolders([]string{"samples", "loops"}),
		selection.ForFiles([]string{"vocals/take1.wav", `samples\snares\snare_01.wav`}),
	}
	for _, sel := range selections {
		viaSQL, err := s.MatchingKeys(ctx, sel)
		require.NoError(t, err)

		m := selection.NewMatcher(sel)
		var viaMatcher []string
		for _, p := range paths {
			if m.Matches(p) {
				viaMatcher = append(viaMatcher, p)
			}
		}
		assert.Equal(t, viaMatcher, viaSQL)
	}
}

func TestShardMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobID := int64(7)
	id, err := s.AddShard(ctx, ShardRow{
		Path: "embeddings_0001.shard", Count: 100,
		MinOrdinal: 1, MaxOrdinal: 100,
		ModelVersion: "clap-v1", JobID: &jobID,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.AddShard(ctx, ShardRow{
		Path: "embeddings_0002.shard", Count: 40,
		MinOrdinal: 101, MaxOrdinal: 140, ModelVersion: "clap-v1",
	})
	require.NoError(t, err)

	shards, err := s.ListShards(ctx)
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, "embeddings_0001.shard", shards[0].Path)
	require.NotNil(t, shards[0].JobID)
	assert.Equal(t, jobID, *shards[0].JobID)
	assert.Nil(t, shards[1].JobID)
	assert.False(t, shards[0].CreatedAt.IsZero())
}

func TestListJobsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j1, err := s.CreateJob(ctx, JobTypeIndex, selection.All(), "")
	require.NoError(t, err)
	j2, err := s.CreateJob(ctx, JobTypeTag, selection.All(), "")
	require.NoError(t, err)
	require.NoError(t, s.StartJob(ctx, j2.ID, 1))

	running, err := s.ListJobs(ctx, StatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, j2.ID, running[0].ID)

	all, err := s.ListJobs(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, j2.ID, all[0].ID)
	assert.Equal(t, j1.ID, all[1].ID)
}

func TestLibraryStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "a.wav", "b.wav", "c.wav")

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Files)
	assert.Zero(t, st.Indexed)

	job, err := s.CreateJob(ctx, JobTypeIndex, selection.All(), "")
	require.NoError(t, err)
	batch, err := s.NextBatch(ctx, selection.All(), selection.Gate{Field: selection.FieldEmbed, Version: "v"}, 0, 2)
	require.NoError(t, err)
	outcomes := []Outcome{{FileID: batch[0].ID}, {FileID: batch[1].ID}}
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldEmbed, "v", outcomes, batch[1].ID))

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Files)
	assert.Equal(t, int64(2), st.Indexed)
	assert.Zero(t, st.Tagged)
}

func TestClearTagsResetsSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFiles(t, s, "drums/kick.wav", "drums/snare.wav", "synths/pad.wav")

	job, err := s.CreateJob(ctx, JobTypeTag, selection.All(), "")
	require.NoError(t, err)
	gate := selection.Gate{Field: selection.FieldTag, Version: "tag-v1"}
	batch, err := s.NextBatch(ctx, selection.All(), gate, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	outcomes := make([]Outcome, len(batch))
	for i, f := range batch {
		outcomes[i] = Outcome{FileID: f.ID, Tags: []string{"drum"}}
	}
	require.NoError(t, s.CommitBatch(ctx, job.ID, selection.FieldTag, "tag-v1", outcomes, batch[2].ID))

	cleared, err := s.ClearTags(ctx, selection.ForFolders([]string{"drums"}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Tagged)

	tags, err := s.TagsForFile(ctx, batch[0].ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	tags, err = s.TagsForFile(ctx, batch[2].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"drum"}, tags)

	// The cleared files are pending again for the same tag version.
	pending, err := s.NextBatch(ctx, selection.All(), gate, 0, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// Clearing an untagged selection is a no-op.
	cleared, err = s.ClearTags(ctx, selection.ForFolders([]string{"drums"}))
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
