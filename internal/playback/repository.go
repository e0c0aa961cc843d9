package playback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RunRepository persists playback runs.
type RunRepository interface {
	// CreateRun inserts a new run record.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun stores the outcome of a run.
	// Returns ErrRunNotFound if the run does not exist.
	UpdateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	// Returns ErrRunNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// ListRunsBySequence returns the most recent runs of one sequence.
	ListRunsBySequence(ctx context.Context, sequenceID string, limit int) ([]Run, error)

	// AbandonRunning marks every run still recorded as running as failed.
	// It is called at startup, when no run can be live.
	AbandonRunning(ctx context.Context, reason string) (int, error)
}

// SQLiteRunRepository implements RunRepository using the playback_runs table.
type SQLiteRunRepository struct {
	db *sql.DB
}

// NewSQLiteRunRepository creates a new SQLite-backed run repository.
func NewSQLiteRunRepository(db *sql.DB) *SQLiteRunRepository {
	return &SQLiteRunRepository{db: db}
}

const runColumns = `id, sequence_id, status, trigger_source, speed, backwards,
	frame_count, frames_played, commands_published, hand_commands_published,
	failed_frame, failed_channel, error, started_at, finished_at, duration_ms`

// CreateRun inserts a new run record.
func (r *SQLiteRunRepository) CreateRun(ctx context.Context, run *Run) error {
	query := `INSERT INTO playback_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.SequenceID,
		string(run.Status),
		run.Trigger,
		run.Speed,
		boolToInt(run.Backwards),
		run.FrameCount,
		run.FramesPlayed,
		run.CommandsPublished,
		run.HandCommandsPublished,
		nullableInt(run.FailedFrame),
		nullableString(run.FailedChannel),
		nullableString(run.Error),
		run.StartedAt.UTC().Format(time.RFC3339),
		nullableTime(run.FinishedAt),
		nullableInt64(run.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// UpdateRun stores the outcome of a run. The run must be finished.
func (r *SQLiteRunRepository) UpdateRun(ctx context.Context, run *Run) error {
	if !run.Status.IsTerminal() {
		return fmt.Errorf("updating run %s: status %q is not final", run.ID, run.Status)
	}

	query := `
		UPDATE playback_runs SET
			status = ?, frames_played = ?, commands_published = ?, hand_commands_published = ?,
			failed_frame = ?, failed_channel = ?, error = ?, finished_at = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.FramesPlayed,
		run.CommandsPublished,
		run.HandCommandsPublished,
		nullableInt(run.FailedFrame),
		nullableString(run.FailedChannel),
		nullableString(run.Error),
		nullableTime(run.FinishedAt),
		nullableInt64(run.DurationMS),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (r *SQLiteRunRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM playback_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run by id: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *SQLiteRunRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM playback_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`
	return r.queryRuns(ctx, query, clampLimit(limit))
}

// ListRunsBySequence returns the most recent runs of one sequence.
func (r *SQLiteRunRepository) ListRunsBySequence(ctx context.Context, sequenceID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM playback_runs
		WHERE sequence_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`
	return r.queryRuns(ctx, query, sequenceID, clampLimit(limit))
}

// AbandonRunning marks leftover running records as failed.
func (r *SQLiteRunRepository) AbandonRunning(ctx context.Context, reason string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, `
		UPDATE playback_runs SET status = ?, error = ?, finished_at = ?
		WHERE status = ?`,
		string(StatusFailed), reason, now, string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("abandoning runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run           Run
		status        string
		backwards     int
		failedFrame   sql.NullInt64
		failedChannel sql.NullString
		errText       sql.NullString
		startedAt     string
		finishedAt    sql.NullString
		durationMS    sql.NullInt64
	)

	err := scanner.Scan(
		&run.ID,
		&run.SequenceID,
		&status,
		&run.Trigger,
		&run.Speed,
		&backwards,
		&run.FrameCount,
		&run.FramesPlayed,
		&run.CommandsPublished,
		&run.HandCommandsPublished,
		&failedFrame,
		&failedChannel,
		&errText,
		&startedAt,
		&finishedAt,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Backwards = backwards != 0
	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		run.StartedAt = t
	}
	if failedFrame.Valid {
		v := int(failedFrame.Int64)
		run.FailedFrame = &v
	}
	if failedChannel.Valid {
		run.FailedChannel = &failedChannel.String
	}
	if errText.Valid {
		run.Error = &errText.String
	}
	if finishedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, finishedAt.String); parseErr == nil {
			run.FinishedAt = &t
		}
	}
	if durationMS.Valid {
		run.DurationMS = &durationMS.Int64
	}
	return &run, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
