// Package store is the durable state layer: library rows, job records
// with their checkpoints, per-item records for explicit-file jobs, shard
// metadata and tag relations, all in a single SQLite database.
package store

import "time"

// JobType identifies which domain worker a job runs.
type JobType string

const (
	JobTypeIndex     JobType = "INDEX"
	JobTypeTag       JobType = "TAG"
	JobTypeTranslate JobType = "TRANSLATE"
	JobTypeApply     JobType = "APPLY_TRANSLATION"
)

// Valid reports whether t names a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeIndex, JobTypeTag, JobTypeTranslate, JobTypeApply:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job record.
type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusRunning JobStatus = "RUNNING"
	StatusPaused  JobStatus = "PAUSED"
	StatusFailed  JobStatus = "FAILED"
	StatusDone    JobStatus = "DONE"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusDone
}

// Resumable reports whether a job in this status may be (re)started.
// FAILED jobs are resumable: the stored checkpoint skips completed work.
// A job found RUNNING after a crash is resumable for the same reason.
func (s JobStatus) Resumable() bool {
	switch s {
	case StatusPending, StatusPaused, StatusFailed, StatusRunning:
		return true
	}
	return false
}

// Job is one batch job record. Checkpoint is the last processed ordinal
// (files.id); zero means nothing has been processed yet. It never
// decreases for the lifetime of the job.
type Job struct {
	ID         int64
	Type       JobType
	Status     JobStatus
	Selection  string // JSON, see internal/selection
	Params     string // JSON, worker-specific
	Total      int64
	Processed  int64
	Failed     int64
	Checkpoint int64
	Error      string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// ItemStatus is the per-item state recorded for explicit-file jobs.
type ItemStatus int

const (
	ItemPending ItemStatus = 0
	ItemDone    ItemStatus = 1
	ItemFailed  ItemStatus = 2
)

// JobItem is one per-item record, populated for explicit-file selections.
type JobItem struct {
	ID     int64
	JobID  int64
	FileID int64
	Path   string
	Status ItemStatus
	Error  string
}

// FileRow is one library row. ID doubles as the job ordinal; Key is the
// normalized form of Path used in selections and shard entries.
type FileRow struct {
	ID             int64
	Path           string
	Key            string
	Name           string
	TranslatedName string
	EmbedVersion   string
	TagVersion     string
	NameVersion    string
	RenameVersion  string
}

// ShardRow is the metadata for one shard file. JobID is nil once the
// owning job is deleted; shards outlive their jobs.
type ShardRow struct {
	ID           int64
	Path         string
	Count        int64
	MinOrdinal   int64
	MaxOrdinal   int64
	ModelVersion string
	JobID        *int64
	CreatedAt    time.Time
}

// Outcome is a worker's verdict for one batch item. A failed outcome
// records the error and skips every mutation; a successful one stamps
// the job's version column and applies whichever mutations are set.
type Outcome struct {
	FileID int64
	Failed bool
	Error  string

	// TranslatedName, when non-nil, replaces files.translated_name.
	TranslatedName *string
	// NewPath, when non-nil, replaces files.path and its derived key.
	NewPath *string
	// Tags, when non-nil, replaces the file's tag relations. An empty
	// non-nil slice clears them.
	Tags []string
}
