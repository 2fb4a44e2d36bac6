package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/saur-hub/watchlist/internal/formatter"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/repositories"
	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/saur-hub/watchlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// List prints the watchlist, optionally narrowed to one list and a filter query.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	kinds := []models.ListKind{models.Movies, models.Series}
	if k := cmd.String("kind"); k != "" {
		kind, err := models.ParseListKind(k)
		if err != nil {
			return err
		}
		kinds = []models.ListKind{kind}
	}

	ctrl, err := r.controller(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := ctrl.Load(ctx); err != nil {
		return err
	}

	query := cmd.String("filter")
	if cmd.Bool("json") {
		out := map[models.ListKind][]models.Item{}
		for _, kind := range kinds {
			out[kind] = ctrl.Filter(kind, query)
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	for _, kind := range kinds {
		items := ctrl.Filter(kind, query)
		r.writePlainHeader(fmt.Sprintf("%s (%d)", strings.ToUpper(string(kind)), len(items)))
		for i, it := range items {
			r.writePlain("%d. %s (%s)", i+1, it.Title, it.Year)
			if it.IMDbRating != "" && it.IMDbRating != "N/A" {
				r.writePlain(" ⭐ %s", it.IMDbRating)
			}
			r.writePlain("  [%s]\n", it.IMDbID)
			if it.Notes != "" {
				r.writePlain("   %s\n", it.Notes)
			}
		}
		r.writePlain("\n")
	}
	return nil
}

// Search queries OMDB and prints candidates with their IMDb ids.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	limit := cmd.Int("limit")

	omdb, err := r.metadata()
	if err != nil {
		return err
	}

	r.logger.Info("searching OMDB", "query", query)

	if cmd.Bool("details") {
		titles, err := omdb.SearchDetailed(ctx, query, limit)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(titles, cmd.Bool("pretty"))
		}
		r.writePlain("Found %d titles:\n\n", len(titles))
		for i, t := range titles {
			r.writePlain("%d. %s (%s) [%s] ⭐ %s\n", i+1, t.Title, t.Year, t.IMDbID, t.IMDbRating)
			if t.Plot != "" && t.Plot != "N/A" {
				r.writePlain("   %s\n", t.Plot)
			}
		}
		return nil
	}

	results, err := omdb.Search(ctx, query)
	if err != nil {
		return err
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d titles:\n\n", len(results))
	for i, res := range results {
		r.writePlain("%d. %s (%s) %s [%s]\n", i+1, res.Title, res.Year, res.Type, res.IMDbID)
	}
	return nil
}

// Add looks up each IMDb id and adds it; all additions are committed together.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one IMDb id", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	ctrl, err := r.controller(ctx, progress)
	if err != nil {
		return err
	}

	tickets, err := ctrl.AddByIDs(ctx, ids, cmd.String("rating"), cmd.String("notes"))
	if closeErr := r.settle(ctx, ctrl, progress, tickets); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if len(tickets) == 0 {
		return r.writePlain("Nothing to add; every title is already on the list\n")
	}
	return r.writePlain("✓ Added %d title(s)\n", len(tickets))
}

// Remove drops each IMDb id from the watchlist.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one IMDb id", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	ctrl, err := r.controller(ctx, progress)
	if err != nil {
		return err
	}

	var tickets []*tasks.SaveTicket
	for _, id := range ids {
		ticket, rmErr := ctrl.Remove(ctx, id)
		if rmErr != nil {
			err = rmErr
			break
		}
		tickets = append(tickets, ticket)
	}
	if closeErr := r.settle(ctx, ctrl, progress, tickets); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	return r.writePlain("✓ Removed %d title(s)\n", len(tickets))
}

// settle flushes the controller and reports save progress, returning the first failed save.
func (r *Runner) settle(ctx context.Context, ctrl *tasks.Controller, progress chan tasks.ProgressUpdate, tickets []*tasks.SaveTicket) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Phase == tasks.SaveFinished || update.Phase == tasks.FetchDetails {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	err := ctrl.Close(ctx)
	for _, ticket := range tickets {
		if _, waitErr := ticket.Wait(ctx); waitErr != nil && err == nil {
			err = waitErr
		}
	}
	close(progress)
	<-done
	return err
}

// Export writes the watchlist to a file in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ctrl, err := r.controller(ctx, nil)
	if err != nil {
		return err
	}
	doc, err := ctrl.Load(ctx)
	if err != nil {
		return err
	}

	if cmd.String("output") == "-" {
		data, err := formatter.Export(doc, format)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	path, err := formatter.WriteExport(doc, format, cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("exported watchlist", "path", path, "items", doc.Len())
	return r.writePlain("✓ Exported %d items to %s\n", doc.Len(), path)
}

// History lists save cycles journaled by this machine, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	records, err := repositories.NewSaveRepository(db).List(cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		return r.writePlain("No saves recorded\n")
	}
	for _, rec := range records {
		status := "✓"
		if rec.Status == models.SaveFailed {
			status = "✗"
		}
		r.writePlain("%s #%d %s  %d items, %d change(s)", status, rec.Sequence, rec.StartedAt.Format("2006-01-02 15:04:05"), rec.ItemCount, rec.Callers)
		if rec.Revision != "" {
			r.writePlain("  %s", shortSHA(rec.Revision))
		}
		if rec.Error != "" {
			r.writePlain("  %s", rec.Error)
		}
		r.writePlain("\n")
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
