package pager

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tododeck/internal/failure"
	"tododeck/internal/todo"
)

//go:generate mockgen -destination=mocks/fetcher.go -package=mocks tododeck/internal/pager Fetcher

const DefaultPageSize = 10

var (
	ErrBusy      = errors.New("a page is already loading")
	ErrExhausted = errors.New("no more pages")
	ErrClosed    = errors.New("pager is closed")
)

// Fetcher retrieves one page of records from the remote source.
type Fetcher interface {
	FetchPage(ctx context.Context, page, size int) ([]todo.Record, error)
}

// State is the observable part of the controller.
type State struct {
	Page      int
	HasMore   bool
	IsLoading bool
}

// Result reports what Complete did with a page. Discarded is set when the
// result arrived after Close or for a page that was not in flight.
type Result struct {
	Page      int
	Received  int
	Added     int
	Err       error
	Discarded bool
}

type Option func(*Controller)

// WithCursor resumes paging at page with the given hasMore flag.
func WithCursor(page int, hasMore bool) Option {
	return func(c *Controller) {
		if page >= 1 {
			c.page = page
		}
		c.hasMore = hasMore
	}
}

// OnCursor registers fn to run after every completed fetch that moves the
// cursor, including pages that add nothing to the store.
func OnCursor(fn func(State)) Option {
	return func(c *Controller) {
		c.onCursor = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// Controller tracks the page cursor and merges fetched pages into the store.
// Like the store, it belongs to a single event loop.
type Controller struct {
	store    *todo.Store
	fetcher  Fetcher
	size     int
	page     int
	hasMore  bool
	loading  bool
	inFlight int
	closed   bool
	onCursor func(State)
	log      zerolog.Logger
}

func New(store *todo.Store, fetcher Fetcher, pageSize int, opts ...Option) *Controller {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	c := &Controller{
		store:   store,
		fetcher: fetcher,
		size:    pageSize,
		page:    1,
		hasMore: true,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return State{Page: c.page, HasMore: c.hasMore, IsLoading: c.loading}
}

func (c *Controller) PageSize() int {
	return c.size
}

// ShouldFetchOnMount reports whether the initial load should run: the store
// is empty and paging is not finished.
func (c *Controller) ShouldFetchOnMount() bool {
	return c.store.Len() == 0 && c.canFetch()
}

// NearEnd reports whether cursor is within threshold rows of the end of a
// rendered list of n rows and another page may be requested.
func (c *Controller) NearEnd(cursor, n, threshold int) bool {
	if !c.canFetch() {
		return false
	}
	if threshold < 0 {
		threshold = 0
	}
	return cursor >= n-1-threshold
}

func (c *Controller) canFetch() bool {
	return c.hasMore && !c.loading && !c.closed
}

// Begin marks the current page as loading and returns it. ok is false when a
// fetch is already in flight, paging is finished, or the controller is closed.
func (c *Controller) Begin() (page int, ok bool) {
	if !c.canFetch() {
		return 0, false
	}
	c.loading = true
	c.inFlight = c.page
	c.log.Debug().Int("page", c.page).Msg("fetching page")
	return c.page, true
}

// Complete applies the outcome of the fetch started by Begin. A full page
// advances the cursor, a short page ends paging, and a failure leaves the
// cursor in place so the same page is retried on the next trigger.
func (c *Controller) Complete(page int, records []todo.Record, err error) Result {
	res := Result{Page: page, Received: len(records), Err: err}
	if c.closed || c.store.Closed() || !c.loading || page != c.inFlight {
		res.Discarded = true
		c.log.Debug().Int("page", page).Msg("discarding page result")
		return res
	}
	c.loading = false
	c.inFlight = 0

	if err != nil {
		res.Received = 0
		c.log.Warn().Err(err).Int("page", page).Str("kind", failure.KindOf(err).String()).Msg("fetch failed")
		return res
	}

	// cursor moves first so store listeners observe the new position
	if len(records) < c.size {
		c.hasMore = false
	} else {
		c.page++
	}
	res.Added = c.store.Merge(records)
	c.log.Debug().Int("page", page).Int("received", res.Received).Int("added", res.Added).Bool("has_more", c.hasMore).Msg("page loaded")
	if c.onCursor != nil {
		c.onCursor(c.State())
	}
	return res
}

// Fetch runs Begin, the remote call and Complete in one step.
func (c *Controller) Fetch(ctx context.Context) (Result, error) {
	page, ok := c.Begin()
	if !ok {
		return Result{}, c.refusal()
	}
	records, err := c.fetcher.FetchPage(ctx, page, c.size)
	res := c.Complete(page, records, err)
	return res, res.Err
}

// Load returns a function that performs the remote call for page without
// touching controller state, so it can run off the event loop.
func (c *Controller) Load(ctx context.Context, page int) func() ([]todo.Record, error) {
	fetcher, size := c.fetcher, c.size
	return func() ([]todo.Record, error) {
		return fetcher.FetchPage(ctx, page, size)
	}
}

// Close stops the controller; results arriving afterwards are discarded.
func (c *Controller) Close() {
	c.closed = true
}

func (c *Controller) refusal() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.loading:
		return ErrBusy
	default:
		return ErrExhausted
	}
}
