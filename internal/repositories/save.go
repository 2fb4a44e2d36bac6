package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
)

// SaveRepository journals save cycles.
//
// Rows are append-only.
type SaveRepository struct {
	db *sql.DB
}

// NewSaveRepository creates a new SaveRepository with the given database connection
func NewSaveRepository(db *sql.DB) *SaveRepository {
	return &SaveRepository{db: db}
}

const saveColumns = `id, sequence, path, base_revision, revision, item_count, callers, status, error, started_at, finished_at`

// Create inserts record, assigning its ID and sequence.
func (r *SaveRepository) Create(record *models.SaveRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "saves")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	finishedAt := record.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = record.StartedAt
	}

	id := shared.GenerateID()
	_, err = r.db.Exec(`INSERT INTO saves (`+saveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		sequence,
		record.Path,
		record.BaseRevision,
		record.Revision,
		record.ItemCount,
		record.Callers,
		string(record.Status),
		record.Error,
		record.StartedAt.UTC(),
		finishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert save: %w", err)
	}

	record.ID = id
	record.Sequence = sequence
	record.FinishedAt = finishedAt
	return nil
}

// Get retrieves a journal entry by ID.
func (r *SaveRepository) Get(id string) (*models.SaveRecord, error) {
	record, err := scanSave(r.db.QueryRow(`SELECT `+saveColumns+` FROM saves WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: save %s", shared.ErrNotFound, id)
	}
	return record, err
}

// List returns the most recent entries first. A non-positive limit returns all of them.
func (r *SaveRepository) List(limit int) ([]*models.SaveRecord, error) {
	query := `SELECT ` + saveColumns + ` FROM saves ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query saves: %w", err)
	}
	defer rows.Close()

	var records []*models.SaveRecord
	for rows.Next() {
		record, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Latest returns the most recent successful save for path, which carries the last revision this machine wrote.
func (r *SaveRepository) Latest(path string) (*models.SaveRecord, error) {
	record, err := scanSave(r.db.QueryRow(`
		SELECT `+saveColumns+`
		FROM saves
		WHERE path = ? AND status = ?
		ORDER BY sequence DESC
		LIMIT 1
	`, path, string(models.SaveSucceeded)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no successful save for %s", shared.ErrNotFound, path)
	}
	return record, err
}

func scanSave(s scanner) (*models.SaveRecord, error) {
	var (
		record models.SaveRecord
		status string
	)

	err := s.Scan(
		&record.ID,
		&record.Sequence,
		&record.Path,
		&record.BaseRevision,
		&record.Revision,
		&record.ItemCount,
		&record.Callers,
		&status,
		&record.Error,
		&record.StartedAt,
		&record.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan save: %w", err)
	}

	record.Status = models.SaveStatus(status)
	return &record, nil
}
