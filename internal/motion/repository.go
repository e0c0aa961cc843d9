package motion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository stores sequence documents in the motion_sequences table.
// The original document text is kept so Load re-validates it exactly as a
// file would be.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed sequence store.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load retrieves and parses the document stored under id.
func (r *SQLiteRepository) Load(ctx context.Context, id string) (*Sequence, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM motion_sequences WHERE id = ?`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying sequence by id: %w", err)
	}
	return Parse(id, []byte(doc))
}

// List returns all stored sequence ids in order.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM motion_sequences ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying sequences: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sequence row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequences: %w", err)
	}
	return ids, nil
}

// Save validates doc and upserts it. created_at is preserved on replace.
func (r *SQLiteRepository) Save(ctx context.Context, id string, doc []byte) (*Sequence, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	seq, err := Parse(id, doc)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO motion_sequences (id, document, actor_count, frame_count, frequency_hz, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			actor_count = excluded.actor_count,
			frame_count = excluded.frame_count,
			frequency_hz = excluded.frequency_hz,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query,
		id, string(doc), len(seq.actors), seq.FrameCount(), seq.FrequencyHz(), now, now,
	); err != nil {
		return nil, fmt.Errorf("saving sequence: %w", err)
	}
	return seq, nil
}

// Delete removes the sequence stored under id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM motion_sequences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sequence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
