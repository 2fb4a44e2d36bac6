package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
)

// DefaultSaveDelay is the coalescing window used when none is configured.
const DefaultSaveDelay = 300 * time.Millisecond

// SaveRequest is the input of one underlying write.
type SaveRequest struct {
	Document models.Document // snapshot from the latest Schedule call of the cycle
	Callers  int             // Schedule calls folded into this write
	Cycle    int             // 1-based cycle number for this saver
}

// SaveResult is the outcome every caller of a cycle observes.
type SaveResult struct {
	Revision   string
	CommitSHA  string
	Document   models.Document // exactly what was written
	Callers    int
	Cycle      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// WriteFunc performs one underlying write.
type WriteFunc func(ctx context.Context, req SaveRequest) (SaveResult, error)

// SaveTicket is a handle on the outcome of the cycle a Schedule call joined.
type SaveTicket struct {
	done   chan struct{}
	result SaveResult
	err    error
}

func newTicket() *SaveTicket {
	return &SaveTicket{done: make(chan struct{})}
}

func (t *SaveTicket) settle(result SaveResult, err error) {
	t.result, t.err = result, err
	close(t.done)
}

// Done is closed once the cycle's write has settled.
func (t *SaveTicket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the write settles or ctx ends. Giving up on ctx does not cancel the write.
func (t *SaveTicket) Wait(ctx context.Context) (SaveResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return SaveResult{}, ctx.Err()
	}
}

// cycle is one batch of Schedule calls that shares a single write.
type cycle struct {
	ticket  *SaveTicket
	doc     models.Document
	callers int
	number  int
	timer   *time.Timer
	gen     int
	ready   bool // window elapsed; start as soon as nothing is in flight
}

// SaverOpts configures a [Saver].
type SaverOpts struct {
	Delay    time.Duration
	Progress chan<- ProgressUpdate
	Logger   *log.Logger
}

// Saver coalesces save requests into sequential writes.
//
// At most one cycle is pending and at most one is in flight. Schedule while a cycle is pending joins it and
// restarts its window. Schedule while a write is in flight opens a new pending cycle, so data changed during the
// write goes out in a trailing write. A pending cycle never starts before the in-flight one has settled.
type Saver struct {
	mu       sync.Mutex
	write    WriteFunc
	delay    time.Duration
	progress chan<- ProgressUpdate
	logger   *log.Logger

	pending  *cycle
	inflight *cycle
	cycles   int
	gen      int
	closed   bool
	busy     bool
	idle     chan struct{}
}

// NewSaver creates a saver that performs writes with write.
func NewSaver(write WriteFunc, opts SaverOpts) *Saver {
	if opts.Delay <= 0 {
		opts.Delay = DefaultSaveDelay
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	idle := make(chan struct{})
	close(idle)

	return &Saver{
		write:    write,
		delay:    opts.Delay,
		progress: opts.Progress,
		logger:   opts.Logger,
		idle:     idle,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Saver) sendProgress(update ProgressUpdate) {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- update:
	default:
	}
}

// Schedule queues doc for writing and returns the ticket of the cycle it joined.
//
// doc is copied; later changes by the caller are not seen.
func (s *Saver) Schedule(doc models.Document) *SaveTicket {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		t := newTicket()
		t.settle(SaveResult{}, shared.ErrSaverClosed)
		return t
	}

	snapshot := doc.Clone()
	c := s.pending
	if c == nil {
		s.cycles++
		c = &cycle{ticket: newTicket(), number: s.cycles}
		s.pending = c
		s.markBusyLocked()
	}
	c.doc = snapshot
	c.callers++

	if !c.ready {
		s.armLocked(c)
	}
	update := saveScheduledUpdate(c.number, c.callers)
	s.mu.Unlock()

	s.sendProgress(update)
	return c.ticket
}

// armLocked (re)starts the window of c. Callbacks of earlier timers are ignored by generation.
func (s *Saver) armLocked(c *cycle) {
	if c.timer != nil {
		c.timer.Stop()
	}
	s.gen++
	gen := s.gen
	c.gen = gen
	c.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Saver) fire(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.gen != gen {
		return
	}
	s.pending.ready = true
	s.startLocked()
}

// startLocked moves a ready pending cycle in flight when nothing else is.
func (s *Saver) startLocked() {
	c := s.pending
	if c == nil || !c.ready || s.inflight != nil {
		return
	}
	s.pending = nil
	s.inflight = c
	go s.run(c)
}

func (s *Saver) run(c *cycle) {
	s.sendProgress(saveStartedUpdate(c.number, c.callers))
	s.logger.Debug("save started", "cycle", c.number, "callers", c.callers, "items", c.doc.Len())

	started := time.Now()
	result, err := s.write(context.Background(), SaveRequest{Document: c.doc, Callers: c.callers, Cycle: c.number})
	if err == nil {
		result.Document = c.doc
		result.Callers = c.callers
		result.Cycle = c.number
		if result.StartedAt.IsZero() {
			result.StartedAt = started
		}
		if result.FinishedAt.IsZero() {
			result.FinishedAt = time.Now()
		}
	} else {
		result = SaveResult{}
		s.logger.Warn("save failed", "cycle", c.number, "callers", c.callers, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = nil
	c.ticket.settle(result, err)
	// sent before going idle so Flush callers may stop listening once it returns
	s.sendProgress(saveFinishedUpdate(c.number, c.callers, result, err))
	s.startLocked()
	s.markIdleLocked()
}

func (s *Saver) markBusyLocked() {
	if !s.busy {
		s.busy = true
		s.idle = make(chan struct{})
	}
}

func (s *Saver) markIdleLocked() {
	if s.busy && s.pending == nil && s.inflight == nil {
		s.busy = false
		close(s.idle)
	}
}

// Busy reports whether a cycle is pending or in flight.
func (s *Saver) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Flush ends the window of a pending cycle now and waits until the saver is idle or ctx ends.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if c := s.pending; c != nil && !c.ready {
		if c.timer != nil {
			c.timer.Stop()
		}
		s.gen++
		c.gen = s.gen
		c.ready = true
		s.startLocked()
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further schedules with [shared.ErrSaverClosed] and flushes what is queued.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}
