package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/session"
	"github.com/saur-hub/watchlist/internal/shared"
)

// SaveJournal records every save cycle. Implemented by repositories.SaveRepository.
type SaveJournal interface {
	Create(record *models.SaveRecord) error
}

// ControllerOpts contains the dependencies of a [Controller].
type ControllerOpts struct {
	Store    services.DocumentStore
	Metadata services.MetadataProvider // optional, required by AddByIDs
	Session  *session.Session
	Journal  SaveJournal // optional
	Config   shared.WatchlistConfig
	Path     string
	Progress chan<- ProgressUpdate
	Logger   *log.Logger
	Now      func() time.Time
}

// Controller owns the in-memory watchlist and pushes every change through a [Saver].
type Controller struct {
	mu       sync.Mutex
	store    services.DocumentStore
	metadata services.MetadataProvider
	session  *session.Session
	journal  SaveJournal
	saver    *Saver
	progress chan<- ProgressUpdate
	logger   *log.Logger
	now      func() time.Time

	path     string
	message  string
	order    string
	strict   bool
	doc      models.Document
	saved    models.Document
	revision string
	loaded   bool
}

// NewController wires a controller and its saver.
func NewController(opts ControllerOpts) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	message := opts.Config.CommitMessage
	if message == "" {
		message = "Update watchlist data"
	}

	c := &Controller{
		store:    opts.Store,
		metadata: opts.Metadata,
		session:  opts.Session,
		journal:  opts.Journal,
		progress: opts.Progress,
		logger:   opts.Logger,
		now:      opts.Now,
		path:     opts.Path,
		message:  message,
		order:    opts.Config.Sort,
		strict:   opts.Config.ConflictMode == shared.ConflictStrict,
		doc:      models.NewDocument(),
		saved:    models.NewDocument(),
	}
	c.saver = NewSaver(c.write, SaverOpts{
		Delay:    opts.Config.SaveDelay(),
		Progress: opts.Progress,
		Logger:   opts.Logger,
	})
	return c
}

func (c *Controller) sendProgress(update ProgressUpdate) {
	if c.progress == nil {
		return
	}
	select {
	case c.progress <- update:
	default:
	}
}

// Load reads the document from the store, replacing local state. A missing file loads as an empty document.
func (c *Controller) Load(ctx context.Context) (models.Document, error) {
	c.sendProgress(loadDocumentUpdate(c.path))

	doc, revision := models.NewDocument(), ""
	file, err := c.store.ReadDocument(ctx, c.path)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		c.logger.Info("watchlist not found, starting empty", "path", c.path)
	case err != nil:
		return models.Document{}, err
	default:
		if doc, err = services.DecodeDocument(file.Content); err != nil {
			return models.Document{}, err
		}
		revision = file.Revision
	}

	for _, kind := range []models.ListKind{models.Movies, models.Series} {
		models.SortItems(doc.List(kind), c.order)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = doc
	c.saved = doc.Clone()
	c.revision = revision
	c.loaded = true
	return doc.Clone(), nil
}

func (c *Controller) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := c.Load(ctx)
	return err
}

// Add validates item, rejects duplicates by title and year, stamps it and schedules a save.
func (c *Controller) Add(ctx context.Context, item models.Item) (*SaveTicket, error) {
	if err := c.session.RequireOwner(); err != nil {
		return nil, err
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if models.IsDuplicate(c.doc.List(item.ListKind()), item) {
		return nil, fmt.Errorf("%w: %s (%s)", shared.ErrDuplicate, item.Title, item.Year)
	}
	if item.AddedAt == "" {
		item.Stamp(c.now())
	}

	kind := c.doc.Add(item, c.order)
	c.logger.Info("added", "title", item.Title, "year", item.Year, "list", kind)
	return c.saver.Schedule(c.doc), nil
}

// AddByIDs looks up each IMDb id and adds it. Duplicates are skipped; all additions share save cycles.
//
// The returned tickets are in the order of ids that were added.
func (c *Controller) AddByIDs(ctx context.Context, ids []string, myRating, notes string) ([]*SaveTicket, error) {
	if c.metadata == nil {
		return nil, fmt.Errorf("%w: no metadata provider configured", shared.ErrMissingCredentials)
	}
	if err := c.session.RequireOwner(); err != nil {
		return nil, err
	}

	var tickets []*SaveTicket
	for i, id := range ids {
		id = strings.TrimSpace(id)
		title, err := c.metadata.Details(ctx, id)
		if err != nil {
			return tickets, fmt.Errorf("%s: %w", id, err)
		}
		c.sendProgress(fetchDetailsUpdate(i+1, len(ids), title.Title))

		ticket, err := c.Add(ctx, title.ToItem(myRating, notes))
		if errors.Is(err, shared.ErrDuplicate) {
			c.logger.Warn("skipping duplicate", "title", title.Title, "year", title.Year)
			continue
		}
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// Remove drops the item with imdbID from whichever list holds it and schedules a save.
func (c *Controller) Remove(ctx context.Context, imdbID string) (*SaveTicket, error) {
	if err := c.session.RequireOwner(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(imdbID) == "" {
		return nil, fmt.Errorf("%w: imdb id", shared.ErrMissingArgument)
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc.Remove(imdbID) == 0 {
		return nil, fmt.Errorf("%w: %s is not in the watchlist", shared.ErrNotFound, imdbID)
	}
	c.logger.Info("removed", "imdb_id", imdbID)
	return c.saver.Schedule(c.doc), nil
}

// Filter returns the items of kind whose title or notes contain query.
func (c *Controller) Filter(kind models.ListKind, query string) []models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Filter(kind, query)
}

// Document returns a copy of the current state, including unsaved changes.
func (c *Controller) Document() models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Saved returns a copy of the last document written or loaded.
func (c *Controller) Saved() models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved.Clone()
}

// Revision returns the revision of the last document written or loaded.
func (c *Controller) Revision() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Session returns the session edits are checked against.
func (c *Controller) Session() *session.Session {
	return c.session
}

// Pending reports whether changes are waiting to be written.
func (c *Controller) Pending() bool {
	return c.saver.Busy()
}

// Flush writes pending changes now and waits for them.
func (c *Controller) Flush(ctx context.Context) error {
	return c.saver.Flush(ctx)
}

// Close flushes and stops accepting changes.
func (c *Controller) Close(ctx context.Context) error {
	return c.saver.Close(ctx)
}

// write is the saver's underlying write.
//
// In refresh mode the current revision is read right before writing, so a concurrent editor is overwritten.
// In strict mode the tracked revision is used and a concurrent edit fails with [shared.ErrConflict]; the caller
// must Load and retry.
func (c *Controller) write(ctx context.Context, req SaveRequest) (SaveResult, error) {
	started := c.now()

	c.mu.Lock()
	base := c.revision
	c.mu.Unlock()

	record := &models.SaveRecord{
		Path:      c.path,
		ItemCount: req.Document.Len(),
		Callers:   req.Callers,
		StartedAt: started,
	}

	result, err := c.writeRevision(ctx, req.Document, base, record)
	record.FinishedAt = c.now()
	if err != nil {
		record.Status = models.SaveFailed
		record.Error = err.Error()
	} else {
		record.Status = models.SaveSucceeded
		record.Revision = result.Revision
	}
	c.journalSave(record)

	if err != nil {
		return SaveResult{}, err
	}

	c.mu.Lock()
	c.revision = result.Revision
	c.saved = req.Document.Clone()
	c.mu.Unlock()

	c.logger.Info("saved watchlist", "revision", shortRevision(result.Revision), "callers", req.Callers, "items", req.Document.Len())
	result.StartedAt, result.FinishedAt = started, record.FinishedAt
	return result, nil
}

func (c *Controller) writeRevision(ctx context.Context, doc models.Document, base string, record *models.SaveRecord) (SaveResult, error) {
	if !c.strict {
		file, err := c.store.ReadDocument(ctx, c.path)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			base = ""
		case err != nil:
			return SaveResult{}, err
		default:
			base = file.Revision
		}
	}
	record.BaseRevision = base

	data, err := services.EncodeDocument(doc)
	if err != nil {
		return SaveResult{}, err
	}

	res, err := c.store.WriteDocument(ctx, c.path, data, base, c.message)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Revision: res.Revision, CommitSHA: res.CommitSHA}, nil
}

func (c *Controller) journalSave(record *models.SaveRecord) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Create(record); err != nil {
		c.logger.Warn("failed to journal save", "error", err)
	}
}
