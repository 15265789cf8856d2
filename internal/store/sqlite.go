package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"samplevault/internal/errors"
	"samplevault/internal/pathkey"
	"samplevault/internal/selection"
)

const timeLayout = time.RFC3339Nano

// Store is the SQLite-backed job record store and library catalog.
// A single writer connection is shared; WAL mode keeps readers live
// while a batch commit is in flight.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// validateIntegrity runs a quick integrity check on an existing database
// before it is opened for writing. A missing file is fine, it will be
// created.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory database for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.IOError(fmt.Sprintf("create directory %s", dir), err)
		}
		if err := validateIntegrity(path); err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed,
				fmt.Sprintf("database at %s failed validation", path), err).
				WithSuggestion("restore the database from backup or rescan the library")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "open database", err)
	}

	// Single writer prevents lock contention with modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA, DSN params are ignored by the driver.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.New(errors.ErrCodeStoreFailed, "set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeStoreFailed, "initialize schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- id is the job ordinal; key is the normalized path used by
	-- selections and shard entries.
	CREATE TABLE IF NOT EXISTS files (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		path            TEXT NOT NULL UNIQUE,
		key             TEXT NOT NULL,
		name            TEXT NOT NULL DEFAULT '',
		translated_name TEXT NOT NULL DEFAULT '',
		embed_version   TEXT NOT NULL DEFAULT '',
		tag_version     TEXT NOT NULL DEFAULT '',
		name_version    TEXT NOT NULL DEFAULT '',
		rename_version  TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_key ON files(key);

	CREATE TABLE IF NOT EXISTS jobs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		job_type    TEXT NOT NULL,
		status      TEXT NOT NULL,
		selection   TEXT NOT NULL,
		params      TEXT NOT NULL DEFAULT '{}',
		total       INTEGER NOT NULL DEFAULT 0,
		processed   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		checkpoint  INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		started_at  TEXT,
		finished_at TEXT
	);

	CREATE TABLE IF NOT EXISTS job_items (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id  INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		file_id INTEGER NOT NULL,
		path    TEXT NOT NULL,
		status  INTEGER NOT NULL DEFAULT 0,
		error   TEXT NOT NULL DEFAULT '',
		UNIQUE(job_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS shards (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		path          TEXT NOT NULL UNIQUE,
		count         INTEGER NOT NULL,
		min_ordinal   INTEGER NOT NULL,
		max_ordinal   INTEGER NOT NULL,
		model_version TEXT NOT NULL DEFAULT '',
		job_id        INTEGER,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file_tags (
		file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		tag     TEXT NOT NULL,
		UNIQUE(file_id, tag)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UpsertFiles registers library paths, ignoring ones already present.
// Returns the number of newly inserted rows. Keys and display names are
// derived here so every consumer sees the same normalization.
func (s *Store) UpsertFiles(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (path, key, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING`)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "prepare upsert", err)
	}
	defer stmt.Close()

	inserted := 0
	ts := now()
	for _, p := range paths {
		key := pathkey.Normalize(p)
		if key == "" {
			continue
		}
		base := pathkey.Base(key)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		res, err := stmt.ExecContext(ctx, p, key, name, ts, ts)
		if err != nil {
			return 0, errors.New(errors.ErrCodeStoreFailed, "insert file", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "commit upsert", err)
	}
	return inserted, nil
}

const fileColumns = `id, path, key, name, translated_name,
	embed_version, tag_version, name_version, rename_version`

func scanFile(scanner interface{ Scan(...any) error }) (FileRow, error) {
	var f FileRow
	err := scanner.Scan(&f.ID, &f.Path, &f.Key, &f.Name, &f.TranslatedName,
		&f.EmbedVersion, &f.TagVersion, &f.NameVersion, &f.RenameVersion)
	return f, err
}

// GetFileByKey returns the library row for a normalized key.
func (s *Store) GetFileByKey(ctx context.Context, key string) (*FileRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE key = ?`, pathkey.Normalize(key))
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("no library row for key %q", key), nil)
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "query file", err)
	}
	return &f, nil
}

// NextBatch returns up to limit rows matching the selection, past the
// checkpoint and not yet at the gate's version, ordered by ordinal.
func (s *Store) NextBatch(ctx context.Context, sel *selection.Selection, gate selection.Gate, after int64, limit int) ([]FileRow, error) {
	pred, args, err := sel.Predicate()
	if err != nil {
		return nil, err
	}
	gateClause, gateArgs, err := gate.Clause()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE ` + pred +
		` AND ` + gateClause + ` AND id > ? ORDER BY id ASC LIMIT ?`
	args = append(args, gateArgs...)
	args = append(args, after, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "query batch", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan batch row", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountSelection counts the rows past the checkpoint that a job over
// this selection and gate still has to process.
func (s *Store) CountSelection(ctx context.Context, sel *selection.Selection, gate selection.Gate, after int64) (int64, error) {
	pred, args, err := sel.Predicate()
	if err != nil {
		return 0, err
	}
	gateClause, gateArgs, err := gate.Clause()
	if err != nil {
		return 0, err
	}
	args = append(args, gateArgs...)
	args = append(args, after)
	var n int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE `+pred+` AND `+gateClause+` AND id > ?`, args...).Scan(&n)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "count selection", err)
	}
	return n, nil
}

// CreateJob creates a PENDING job. The selection is validated before
// anything is written; a bad selection never produces a job record.
func (s *Store) CreateJob(ctx context.Context, jobType JobType, sel *selection.Selection, params string) (*Job, error) {
	if !jobType.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownJobType,
			fmt.Sprintf("unknown job type %q", string(jobType)), nil)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	encoded, err := sel.Encode()
	if err != nil {
		return nil, err
	}
	if params == "" {
		params = "{}"
	}
	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (job_type, status, selection, params, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(jobType), string(StatusPending), encoded, params, ts)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "create job", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "job id", err)
	}
	slog.Info("job_created",
		slog.Int64("job_id", id),
		slog.String("type", string(jobType)))
	return s.GetJob(ctx, id)
}

const jobColumns = `id, job_type, status, selection, params, total,
	processed, failed, checkpoint, error, created_at, started_at, finished_at`

func scanJob(scanner interface{ Scan(...any) error }) (*Job, error) {
	var j Job
	var created, started, finished sql.NullString
	err := scanner.Scan(&j.ID, &j.Type, &j.Status, &j.Selection, &j.Params,
		&j.Total, &j.Processed, &j.Failed, &j.Checkpoint, &j.Error,
		&created, &started, &finished)
	if err != nil {
		return nil, err
	}
	j.CreatedAt = parseTime(created)
	j.StartedAt = parseTime(started)
	j.FinishedAt = parseTime(finished)
	return &j, nil
}

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeJobNotFound,
			fmt.Sprintf("job %d not found", id), nil)
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "query job", err)
	}
	return j, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status JobStatus) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "list jobs", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan job", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// StartJob moves a resumable job to RUNNING and records its total. The
// checkpoint is untouched, so a resumed job continues where it stopped.
func (s *Store) StartJob(ctx context.Context, id int64, total int64) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.Resumable() {
		return errors.New(errors.ErrCodeJobConflict,
			fmt.Sprintf("job %d is %s and cannot start", id, job.Status), nil)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, total = ?, error = '', started_at = ?
		WHERE id = ?`,
		string(StatusRunning), total, now(), id)
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "start job", err)
	}
	return nil
}

// UpdateProgress applies counter deltas and advances the checkpoint.
// Safe to call repeatedly; the checkpoint never moves backwards.
func (s *Store) UpdateProgress(ctx context.Context, id int64, dProcessed, dFailed, checkpoint int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			processed = processed + ?,
			failed = failed + ?,
			checkpoint = CASE WHEN checkpoint < ? THEN ? ELSE checkpoint END
		WHERE id = ?`,
		dProcessed, dFailed, checkpoint, checkpoint, id)
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "update progress", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeJobNotFound,
			fmt.Sprintf("job %d not found", id), nil)
	}
	return nil
}

// MarkPaused records a cooperative pause. The checkpoint stays put.
func (s *Store) MarkPaused(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusPaused, "", false)
}

// MarkFailed is terminal for this run; the message is kept and the
// checkpoint survives, so a re-run skips completed items.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.setStatus(ctx, id, StatusFailed, message, true)
}

// MarkDone is terminal.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusDone, "", true)
}

func (s *Store) setStatus(ctx context.Context, id int64, status JobStatus, message string, finished bool) error {
	var res sql.Result
	var err error
	if finished {
		res, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
			string(status), message, now(), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error = ? WHERE id = ?`,
			string(status), message, id)
	}
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed,
			fmt.Sprintf("mark job %s", status), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeJobNotFound,
			fmt.Sprintf("job %d not found", id), nil)
	}
	slog.Info("job_status",
		slog.Int64("job_id", id),
		slog.String("status", string(status)))
	return nil
}

// EnsureJobItems populates per-item records for an explicit-file job.
// Existing records are kept, so resumption does not reset item state.
func (s *Store) EnsureJobItems(ctx context.Context, jobID int64, files []FileRow) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "begin job items", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_items (job_id, file_id, path)
		VALUES (?, ?, ?)
		ON CONFLICT(job_id, file_id) DO NOTHING`)
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "prepare job items", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, jobID, f.ID, f.Path); err != nil {
			return errors.New(errors.ErrCodeStoreFailed, "insert job item", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "commit job items", err)
	}
	return nil
}

// ListJobItems returns a job's per-item records in file order.
func (s *Store) ListJobItems(ctx context.Context, jobID int64) ([]JobItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, file_id, path, status, error
		FROM job_items WHERE job_id = ? ORDER BY file_id ASC`, jobID)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "list job items", err)
	}
	defer rows.Close()

	var out []JobItem
	for rows.Next() {
		var it JobItem
		if err := rows.Scan(&it.ID, &it.JobID, &it.FileID, &it.Path, &it.Status, &it.Error); err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan job item", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CommitBatch persists one batch atomically: per-item mutations, version
// stamps, job item state, counter deltas and the checkpoint all land in
// a single transaction, or none of them do.
func (s *Store) CommitBatch(ctx context.Context, jobID int64, field selection.VersionField, version string, outcomes []Outcome, checkpoint int64) error {
	col, err := field.Column()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "begin batch commit", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	var processed, failed int64
	for _, o := range outcomes {
		if o.Failed {
			failed++
			if _, err := tx.ExecContext(ctx, `
				UPDATE job_items SET status = ?, error = ?
				WHERE job_id = ? AND file_id = ?`,
				int(ItemFailed), o.Error, jobID, o.FileID); err != nil {
				return errors.New(errors.ErrCodeStoreFailed, "record item failure", err)
			}
			continue
		}
		processed++

		// col is whitelisted via VersionField.Column.
		if _, err := tx.ExecContext(ctx,
			`UPDATE files SET `+col+` = ?, updated_at = ? WHERE id = ?`,
			version, ts, o.FileID); err != nil {
			return errors.New(errors.ErrCodeStoreFailed, "stamp version", err)
		}
		if o.TranslatedName != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE files SET translated_name = ?, updated_at = ? WHERE id = ?`,
				*o.TranslatedName, ts, o.FileID); err != nil {
				return errors.New(errors.ErrCodeStoreFailed, "record translation", err)
			}
		}
		if o.NewPath != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE files SET path = ?, key = ?, updated_at = ? WHERE id = ?`,
				*o.NewPath, pathkey.Normalize(*o.NewPath), ts, o.FileID); err != nil {
				return errors.New(errors.ErrCodeStoreFailed, "record rename", err)
			}
		}
		if o.Tags != nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM file_tags WHERE file_id = ?`, o.FileID); err != nil {
				return errors.New(errors.ErrCodeStoreFailed, "clear tags", err)
			}
			for _, tag := range o.Tags {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO file_tags (file_id, tag) VALUES (?, ?)
					ON CONFLICT(file_id, tag) DO NOTHING`,
					o.FileID, tag); err != nil {
					return errors.New(errors.ErrCodeStoreFailed, "write tag", err)
				}
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE job_items SET status = ?, error = ''
			WHERE job_id = ? AND file_id = ?`,
			int(ItemDone), jobID, o.FileID); err != nil {
			return errors.New(errors.ErrCodeStoreFailed, "record item success", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET
			processed = processed + ?,
			failed = failed + ?,
			checkpoint = CASE WHEN checkpoint < ? THEN ? ELSE checkpoint END
		WHERE id = ?`,
		processed, failed, checkpoint, checkpoint, jobID); err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "advance checkpoint", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.ErrCodeStoreFailed, "commit batch", err)
	}
	return nil
}

// AddShard registers a flushed shard file's metadata.
func (s *Store) AddShard(ctx context.Context, shard ShardRow) (int64, error) {
	var jobID any
	if shard.JobID != nil {
		jobID = *shard.JobID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shards (path, count, min_ordinal, max_ordinal, model_version, job_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		shard.Path, shard.Count, shard.MinOrdinal, shard.MaxOrdinal,
		shard.ModelVersion, jobID, now())
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "add shard", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "shard id", err)
	}
	return id, nil
}

// ListShards returns shard metadata in creation order.
func (s *Store) ListShards(ctx context.Context) ([]ShardRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, count, min_ordinal, max_ordinal, model_version, job_id, created_at
		FROM shards ORDER BY id ASC`)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "list shards", err)
	}
	defer rows.Close()

	var out []ShardRow
	for rows.Next() {
		var sh ShardRow
		var jobID sql.NullInt64
		var created sql.NullString
		if err := rows.Scan(&sh.ID, &sh.Path, &sh.Count, &sh.MinOrdinal,
			&sh.MaxOrdinal, &sh.ModelVersion, &jobID, &created); err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan shard", err)
		}
		if jobID.Valid {
			v := jobID.Int64
			sh.JobID = &v
		}
		sh.CreatedAt = parseTime(created)
		out = append(out, sh)
	}
	return out, rows.Err()
}

// TagsForFile returns a file's tags sorted alphabetically.
func (s *Store) TagsForFile(ctx context.Context, fileID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM file_tags WHERE file_id = ? ORDER BY tag ASC`, fileID)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "list tags", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan tag", err)
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

// ClearTags deletes the recorded tags for every file matching the
// selection and resets their tag version, so the files are pending
// again for the next tag job. Returns the number of files reset.
func (s *Store) ClearTags(ctx context.Context, sel *selection.Selection) (int64, error) {
	pred, args, err := sel.Predicate()
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "begin clear tags", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_tags WHERE file_id IN (SELECT id FROM files WHERE `+pred+`)`,
		args...); err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "delete tags", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE files SET tag_version = '', updated_at = ? WHERE `+pred+` AND tag_version != ''`,
		append([]any{now()}, args...)...)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "reset tag version", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "count cleared files", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.New(errors.ErrCodeStoreFailed, "commit clear tags", err)
	}
	slog.Info("tags_cleared", slog.Int64("files", cleared))
	return cleared, nil
}

// MatchingKeys returns every key matching a selection predicate, used by
// tests to cross-check predicate and matcher evaluation.
func (s *Store) MatchingKeys(ctx context.Context, sel *selection.Selection) ([]string, error) {
	pred, args, err := sel.Predicate()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM files WHERE `+pred+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "query keys", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.New(errors.ErrCodeStoreFailed, "scan key", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// LibraryStats are coarse library counters shown by the jobs command.
type LibraryStats struct {
	Files      int64
	Indexed    int64
	Tagged     int64
	Translated int64
	Renamed    int64
}

// Stats counts library rows by processing stage.
func (s *Store) Stats(ctx context.Context) (*LibraryStats, error) {
	var st LibraryStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN embed_version != '' THEN 1 END),
		       COUNT(CASE WHEN tag_version != '' THEN 1 END),
		       COUNT(CASE WHEN name_version != '' THEN 1 END),
		       COUNT(CASE WHEN rename_version != '' THEN 1 END)
		FROM files`).Scan(&st.Files, &st.Indexed, &st.Tagged, &st.Translated, &st.Renamed)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "count library stats", err)
	}
	return &st, nil
}
