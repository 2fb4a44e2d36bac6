// OMDB implementation of [MetadataProvider]
//
// See https://www.omdbapi.com/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultOMDBBaseURL = "https://www.omdbapi.com"
	minSearchLength    = 3
	detailConcurrency  = 4
)

type omdbSearchResponse struct {
	Search       []SearchResult `json:"Search"`
	TotalResults string         `json:"totalResults"`
	Response     string         `json:"Response"`
	Error        string         `json:"Error"`
}

type omdbTitleResponse struct {
	models.Title
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// OMDBService queries OMDB directly or through a proxy that injects the API key.
type OMDBService struct {
	api      *APIService
	apiKey   string
	proxied  bool
	limiter  *rate.Limiter
	cache    TitleCache
	cacheTTL time.Duration
}

// NewOMDBService creates an OMDB client. cache may be nil.
//
// When cfg.ProxyURL is set, requests go there and the API key is never sent.
func NewOMDBService(cfg shared.OMDBConfig, client *http.Client, cache TitleCache) *OMDBService {
	baseURL, proxied := cfg.BaseURL, false
	if cfg.ProxyURL != "" {
		baseURL, proxied = cfg.ProxyURL, true
	}
	if baseURL == "" {
		baseURL = defaultOMDBBaseURL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &OMDBService{
		api:      NewAPIService(strings.TrimRight(baseURL, "/"), client),
		apiKey:   cfg.APIKey,
		proxied:  proxied,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    cache,
		cacheTTL: cfg.CacheTTL(),
	}
}

func (o *OMDBService) get(ctx context.Context, params url.Values, out any) error {
	if !o.proxied {
		if o.apiKey == "" {
			return fmt.Errorf("%w: omdb.api_key or omdb.proxy_url must be set", shared.ErrMissingCredentials)
		}
		params.Set("apikey", o.apiKey)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := o.api.Get(ctx, "/", params)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: omdb rejected the api key", shared.ErrAuth)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: omdb: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return resp.Decode(out)
}

// Search returns candidates for query. Queries shorter than three characters return nothing without a request.
func (o *OMDBService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return nil, nil
	}

	var out omdbSearchResponse
	if err := o.get(ctx, url.Values{"s": {query}}, &out); err != nil {
		return nil, err
	}
	if out.Response != "True" {
		if isKeyError(out.Error) {
			return nil, fmt.Errorf("%w: omdb: %s", shared.ErrAuth, out.Error)
		}
		return nil, nil
	}
	return out.Search, nil
}

// Details returns full metadata for imdbID, consulting the cache first.
func (o *OMDBService) Details(ctx context.Context, imdbID string) (*models.Title, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, fmt.Errorf("%w: imdb id", shared.ErrMissingArgument)
	}

	if o.cache != nil {
		if t, ok := o.cache.CachedTitle(imdbID, o.cacheTTL); ok {
			return t, nil
		}
	}

	var out omdbTitleResponse
	if err := o.get(ctx, url.Values{"i": {imdbID}}, &out); err != nil {
		return nil, err
	}
	if out.Response != "True" {
		if isKeyError(out.Error) {
			return nil, fmt.Errorf("%w: omdb: %s", shared.ErrAuth, out.Error)
		}
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrNotFound, imdbID, out.Error)
	}

	title := out.Title
	if o.cache != nil {
		// A cache write failure only costs a future request.
		_ = o.cache.CacheTitle(title)
	}
	return &title, nil
}

// SearchDetailed searches and then fetches details for up to limit results concurrently, preserving order.
func (o *OMDBService) SearchDetailed(ctx context.Context, query string, limit int) ([]models.Title, error) {
	results, err := o.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	titles := make([]models.Title, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)

	for i, r := range results {
		g.Go(func() error {
			t, err := o.Details(gctx, r.IMDbID)
			if err != nil {
				return err
			}
			titles[i] = *t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return titles, nil
}

func isKeyError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "api key")
}
