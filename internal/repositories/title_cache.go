package repositories

import (
	"time"

	"github.com/saur-hub/watchlist/internal/models"
)

// TitleCacheAdapter implements services.TitleCache using TitleRepository.
//
// Lookup failures read as cache misses so the caller falls through to the API.
type TitleCacheAdapter struct {
	repo *TitleRepository
}

// NewTitleCacheAdapter creates a new TitleCacheAdapter with the given repository
func NewTitleCacheAdapter(repo *TitleRepository) *TitleCacheAdapter {
	return &TitleCacheAdapter{repo: repo}
}

// CachedTitle returns the entry for imdbID when it is younger than maxAge. A non-positive maxAge never expires.
func (a *TitleCacheAdapter) CachedTitle(imdbID string, maxAge time.Duration) (*models.Title, bool) {
	entry, err := a.repo.GetByIMDbID(imdbID)
	if err != nil {
		return nil, false
	}
	if maxAge > 0 && a.repo.now().Sub(entry.FetchedAt) > maxAge {
		return nil, false
	}
	return &entry.Title, true
}

// CacheTitle stores title.
func (a *TitleCacheAdapter) CacheTitle(title models.Title) error {
	return a.repo.Upsert(title)
}
