// Package search coordinates transcript search: the query being typed, the
// query actually committed to the server, paging, and the bookkeeping that
// keeps slow or failed responses from clobbering newer state.
package search

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// Mode selects how the server interprets the query text.
type Mode string

const (
	// ModeContains matches the query as a literal substring.
	ModeContains Mode = "contains"

	// ModeRegex treats the query as a regular expression.
	ModeRegex Mode = "regex"

	// ModeBoolean treats the query as a boolean term expression.
	ModeBoolean Mode = "boolean"
)

// ParseMode validates a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeContains, ModeRegex, ModeBoolean:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: search mode %q (want contains, regex, or boolean)", acerrors.ErrInvalidState, s)
}

// Query is one search request as sent to the archive.
type Query struct {
	Mode     Mode
	Text     string
	Page     int
	PageSize int
}

// Result is the server's answer: matching episodes with their transcripts,
// plus the total number of pages for the query.
type Result struct {
	Episodes  []transcript.Episode
	PageCount int
}

// Executor performs the actual search request.
type Executor interface {
	ExecuteSearch(ctx context.Context, q Query) (*Result, error)
}

// NavState mirrors the s/p/ps navigation parameters that identify a search
// view: committed query, page, and page size.
type NavState struct {
	S  string
	P  int
	PS int
}

// DefaultPageSize applies when no page size was given.
const DefaultPageSize = 20

// Coordinator owns the state of one search session. Input text and the
// committed query are tracked separately: typing never triggers a fetch, and
// a fetch always runs against the committed query. All methods are safe for
// concurrent use.
type Coordinator struct {
	mu sync.Mutex

	executor Executor

	mode      Mode
	input     string
	committed string
	page      int
	pageSize  int

	episodes      []transcript.Episode
	pageCount     int
	havePageCount bool
	loadingError  string

	loading bool

	// gen is the generation of the last response applied to state; nextGen
	// hands out a generation per fetch. A response whose generation is not
	// past the watermark is discarded, so results can never move backward
	// no matter how responses are reordered.
	gen     uint64
	nextGen uint64
}

// Option configures a Coordinator at construction time, before any fetch
// can run.
type Option func(*Coordinator)

// WithMode sets the initial search mode.
func WithMode(mode Mode) Option {
	return func(c *Coordinator) { c.mode = mode }
}

// WithPageSize sets the initial page size.
func WithPageSize(pageSize int) Option {
	return func(c *Coordinator) {
		if pageSize > 0 {
			c.pageSize = pageSize
		}
	}
}

// NewCoordinator builds a session in contains mode on the first page.
func NewCoordinator(executor Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		executor: executor,
		mode:     ModeContains,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetInput updates the text being typed without committing it.
func (c *Coordinator) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the uncommitted text.
func (c *Coordinator) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Committed returns the query the current results belong to.
func (c *Coordinator) Committed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Mode returns the current search mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Page returns the current zero-based page.
func (c *Coordinator) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// PageSize returns the current page size.
func (c *Coordinator) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

// Results returns the last applied result set and page count. The boolean is
// false until a fetch has succeeded at least once.
func (c *Coordinator) Results() ([]transcript.Episode, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transcript.Episode, len(c.episodes))
	copy(out, c.episodes)
	return out, c.pageCount, c.havePageCount
}

// LoadingError returns the message of the last failed fetch, or "" when the
// last fetch succeeded.
func (c *Coordinator) LoadingError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingError
}

// Commit promotes the input text to the committed query, resets to the first
// page, and fetches. The committed text is NFC-normalized so composed and
// decomposed spellings of the same word search identically.
func (c *Coordinator) Commit(ctx context.Context) error {
	c.mu.Lock()
	c.committed = norm.NFC.String(c.input)
	c.page = 0
	c.mu.Unlock()
	return c.fetch(ctx)
}

// SetMode switches the search mode and refetches the committed query.
func (c *Coordinator) SetMode(ctx context.Context, mode Mode) error {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return c.fetch(ctx)
}

// SetPage moves to the given zero-based page and fetches it.
func (c *Coordinator) SetPage(ctx context.Context, page int) error {
	if page < 0 {
		return fmt.Errorf("%w: page %d", acerrors.ErrInvalidState, page)
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return c.fetch(ctx)
}

// SetPageSize changes the page size and refetches the current view.
func (c *Coordinator) SetPageSize(ctx context.Context, pageSize int) error {
	if pageSize <= 0 {
		return fmt.Errorf("%w: page size %d", acerrors.ErrInvalidState, pageSize)
	}
	c.mu.Lock()
	c.pageSize = pageSize
	c.mu.Unlock()
	return c.fetch(ctx)
}

// NavState returns the navigation parameters describing the current view.
func (c *Coordinator) NavState() NavState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NavState{S: c.committed, P: c.page, PS: c.pageSize}
}

// ApplyNavState adopts externally supplied navigation parameters. When they
// already match the current view nothing happens, which breaks the loop
// between state updates and the navigation they publish.
func (c *Coordinator) ApplyNavState(ctx context.Context, nav NavState) error {
	c.mu.Lock()
	if nav.S == c.committed && nav.P == c.page && nav.PS == c.pageSize {
		c.mu.Unlock()
		return nil
	}
	c.committed = norm.NFC.String(nav.S)
	c.input = c.committed
	c.page = nav.P
	c.pageSize = nav.PS
	c.mu.Unlock()
	return c.fetch(ctx)
}

// fetch runs the committed query through the executor and applies the
// response unless a newer one already landed. Only one fetch runs at a time;
// a second caller gets ErrOperationInFlight and changes nothing.
func (c *Coordinator) fetch(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return acerrors.ErrOperationInFlight
	}
	c.loading = true
	c.nextGen++
	gen := c.nextGen
	q := Query{Mode: c.mode, Text: c.committed, Page: c.page, PageSize: c.pageSize}
	c.mu.Unlock()

	res, err := c.executor.ExecuteSearch(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if gen <= c.gen {
		return fmt.Errorf("%w: generation %d already superseded", acerrors.ErrStaleResponse, gen)
	}
	c.gen = gen

	if err != nil {
		// Prior results stay visible alongside the error.
		c.loadingError = err.Error()
		return err
	}

	c.episodes = res.Episodes
	c.pageCount = res.PageCount
	c.havePageCount = true
	c.loadingError = ""
	return nil
}
