package main

import (
	"context"
	"time"

	"github.com/saur-hub/watchlist/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheList prints the OMDB titles cached in the local database.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	entries, err := repositories.NewTitleRepository(db).List()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	ttl := r.cfg().OMDB.CacheTTL()
	r.writePlain("%d cached titles (fresh for %s):\n\n", len(entries), ttl)
	for _, e := range entries {
		state := "fresh"
		if time.Since(e.FetchedAt) > ttl {
			state = "stale"
		}
		r.writePlain("%s  %s (%s)  %s, fetched %s\n", e.Title.IMDbID, e.Title.Title, e.Title.Year, state, e.FetchedAt.Format(time.RFC3339))
	}
	return nil
}

// CachePurge deletes cached titles fetched before now minus --older-than.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-cmd.Duration("older-than"))
	n, err := repositories.NewTitleRepository(db).Purge(cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("purged title cache", "removed", n, "cutoff", cutoff)
	return r.writePlain("✓ Removed %d cached titles\n", n)
}
