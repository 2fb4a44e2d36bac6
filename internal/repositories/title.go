package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
)

// TitleEntry is a cached OMDB title with its bookkeeping columns.
type TitleEntry struct {
	ID        string
	Sequence  int
	Title     models.Title
	FetchedAt time.Time
}

// TitleRepository caches OMDB title details.
type TitleRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTitleRepository creates a new TitleRepository with the given database connection
func NewTitleRepository(db *sql.DB) *TitleRepository {
	return &TitleRepository{db: db, now: time.Now}
}

// Upsert stores title, replacing any entry with the same IMDb id and resetting its fetch time.
func (r *TitleRepository) Upsert(title models.Title) error {
	if title.IMDbID == "" {
		return fmt.Errorf("%w: imdb id is required", shared.ErrValidation)
	}
	if title.Title == "" {
		return fmt.Errorf("%w: title is required", shared.ErrValidation)
	}

	payload, err := json.Marshal(title)
	if err != nil {
		return fmt.Errorf("failed to encode title: %w", err)
	}
	fetchedAt := r.now().UTC()

	result, err := r.db.Exec(`
		UPDATE titles
		SET title = ?, year = ?, type = ?, imdb_rating = ?, poster_url = ?, payload = ?, fetched_at = ?
		WHERE imdb_id = ?
	`, title.Title, title.Year, title.Type, title.IMDbRating, title.Poster, string(payload), fetchedAt, title.IMDbID)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return nil
	}

	sequence, err := NextSequence(r.db, "titles")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO titles (id, sequence, imdb_id, title, year, type, imdb_rating, poster_url, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, shared.GenerateID(), sequence, title.IMDbID, title.Title, title.Year, title.Type, title.IMDbRating, title.Poster, string(payload), fetchedAt)
	if err != nil {
		return fmt.Errorf("failed to insert title: %w", err)
	}
	return nil
}

// GetByIMDbID returns the cached entry for imdbID or [shared.ErrNotFound].
func (r *TitleRepository) GetByIMDbID(imdbID string) (*TitleEntry, error) {
	row := r.db.QueryRow(`
		SELECT id, sequence, payload, fetched_at
		FROM titles
		WHERE imdb_id = ?
	`, imdbID)

	entry, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: title %s", shared.ErrNotFound, imdbID)
	}
	return entry, err
}

// List returns every cached title in insertion order.
func (r *TitleRepository) List() ([]*TitleEntry, error) {
	rows, err := r.db.Query(`SELECT id, sequence, payload, fetched_at FROM titles ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var entries []*TitleEntry
	for rows.Next() {
		entry, err := scanTitle(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Purge deletes entries fetched before cutoff and reports how many were removed.
func (r *TitleRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM titles WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge titles: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

func scanTitle(s scanner) (*TitleEntry, error) {
	var (
		entry   TitleEntry
		payload string
	)

	if err := s.Scan(&entry.ID, &entry.Sequence, &payload, &entry.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan title: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &entry.Title); err != nil {
		return nil, fmt.Errorf("failed to decode title payload: %w", err)
	}
	return &entry, nil
}
