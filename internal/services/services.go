// package services defines clients for the HTTP APIs the watchlist talks to
//
// GitHub (document storage), OMDB (title metadata)
package services

import (
	"context"
	"time"

	"github.com/saur-hub/watchlist/internal/models"
)

// DocumentStore reads and writes whole files guarded by an opaque revision.
type DocumentStore interface {
	// ReadDocument returns the stored bytes and revision, or [shared.ErrNotFound].
	ReadDocument(ctx context.Context, path string) (*RemoteFile, error)

	// WriteDocument replaces the file. A non-empty revision must match the stored one or the call fails with
	// [shared.ErrConflict]; an empty revision creates the file.
	WriteDocument(ctx context.Context, path string, content []byte, revision, message string) (*WriteResult, error)
}

// MetadataProvider looks up titles by free text and by IMDb id.
type MetadataProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Details(ctx context.Context, imdbID string) (*models.Title, error)
}

// TitleCache stores title details between runs.
type TitleCache interface {
	// CachedTitle returns a cached entry no older than maxAge.
	CachedTitle(imdbID string, maxAge time.Duration) (*models.Title, bool)
	CacheTitle(title models.Title) error
}

// RemoteFile is a file read from a [DocumentStore].
type RemoteFile struct {
	Path     string
	Content  []byte
	Revision string
}

// WriteResult identifies the revision created by a write.
type WriteResult struct {
	Revision  string // new blob sha, required for the next write
	CommitSHA string
}

// SearchResult is a single candidate from a free-text search.
type SearchResult struct {
	IMDbID string `json:"imdbID"`
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}
