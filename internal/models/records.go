package models

import (
	"fmt"
	"time"

	"github.com/saur-hub/watchlist/internal/shared"
)

// Title is OMDB metadata for a single IMDb id.
type Title struct {
	IMDbID     string `json:"imdbID"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Type       string `json:"Type"`
	IMDbRating string `json:"imdbRating"`
	Poster     string `json:"Poster"`
	Plot       string `json:"Plot,omitempty"`
	Genre      string `json:"Genre,omitempty"`
	Runtime    string `json:"Runtime,omitempty"`
}

// ToItem converts the metadata into a watchlist item carrying the personal fields.
//
// A poster of "N/A" is kept as-is; renderers substitute their own placeholder.
func (t Title) ToItem(myRating, notes string) Item {
	return Item{
		Title:      t.Title,
		Year:       t.Year,
		MyRating:   myRating,
		IMDbRating: t.IMDbRating,
		IMDbID:     t.IMDbID,
		PosterURL:  t.Poster,
		Notes:      notes,
		Type:       t.Type,
	}
}

// SaveStatus is the outcome of a save cycle.
type SaveStatus string

const (
	SaveSucceeded SaveStatus = "succeeded"
	SaveFailed    SaveStatus = "failed"
)

// SaveRecord is one journal entry describing a save cycle and the write it issued.
type SaveRecord struct {
	ID           string
	Sequence     int
	Path         string
	BaseRevision string
	Revision     string
	ItemCount    int
	Callers      int
	Status       SaveStatus
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Validate checks the fields the journal requires.
func (r *SaveRecord) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: save record path is required", shared.ErrValidation)
	}
	switch r.Status {
	case SaveSucceeded, SaveFailed:
	default:
		return fmt.Errorf("%w: unknown save status %q", shared.ErrValidation, r.Status)
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("%w: save record start time is required", shared.ErrValidation)
	}
	return nil
}
