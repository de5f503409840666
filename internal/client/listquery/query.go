package listquery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/clock"
	"github.com/atinyakov/opsconsole/internal/logger"
)

// PageFetcher fetches one page for a query state.
type PageFetcher interface {
	FetchPage(ctx context.Context, st State) (*Page, api.Outcome)
}

// ResultFunc receives the result of a debounced fetch.
type ResultFunc func(*Page, api.Outcome)

// Query holds the state of one list view and its last successful page.
// Fetches are not cancelled when superseded: whichever completes last
// determines the stored page.
type Query struct {
	fetcher   PageFetcher
	debouncer *Debouncer
	onResult  ResultFunc
	log       *zap.Logger

	mu    sync.Mutex
	state State
	last  *Page
}

type queryConfig struct {
	clock    clock.Clock
	delay    time.Duration
	onResult ResultFunc
	log      *zap.Logger
}

// QueryOption configures a Query.
type QueryOption func(*queryConfig)

// WithClock sets the clock used by the search debounce.
func WithClock(c clock.Clock) QueryOption { return func(q *queryConfig) { q.clock = c } }

// WithDebounce sets the quiet period of SetFilterDebounced.
func WithDebounce(d time.Duration) QueryOption { return func(q *queryConfig) { q.delay = d } }

// WithResultHandler sets the receiver of debounced fetch results.
func WithResultHandler(f ResultFunc) QueryOption { return func(q *queryConfig) { q.onResult = f } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) QueryOption { return func(q *queryConfig) { q.log = log } }

// NewQuery returns a Query starting at initial.
func NewQuery(fetcher PageFetcher, initial State, opts ...QueryOption) *Query {
	cfg := queryConfig{clock: clock.Real(), delay: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	if initial.Filters == nil {
		initial.Filters = map[string]string{}
	}
	return &Query{
		fetcher:   fetcher,
		debouncer: NewDebouncer(cfg.clock, cfg.delay),
		onResult:  cfg.onResult,
		log:       logger.OrNop(cfg.log),
		state:     initial,
	}
}

// State returns the current query state.
func (q *Query) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state.WithPage(q.state.Page)
}

// Last returns the last successfully fetched page, or nil.
func (q *Query) Last() *Page {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

// Fetch fetches the current state.
func (q *Query) Fetch(ctx context.Context) (*Page, api.Outcome) {
	st := q.State()
	page, out := q.fetcher.FetchPage(ctx, st)
	if page != nil {
		q.mu.Lock()
		q.last = page
		q.mu.Unlock()
	} else {
		q.log.Debug("list fetch failed", zap.String("outcome", out.Result().Message))
	}
	return page, out
}

// SetFilter sets one filter, resets to the first page and fetches.
func (q *Query) SetFilter(ctx context.Context, name, value string) (*Page, api.Outcome) {
	q.update(func(s State) State { return s.WithFilter(name, value) })
	return q.Fetch(ctx)
}

// SetPage moves to page and fetches. Filters are kept.
func (q *Query) SetPage(ctx context.Context, page int) (*Page, api.Outcome) {
	q.update(func(s State) State { return s.WithPage(page) })
	return q.Fetch(ctx)
}

// SetLimit changes the page size and fetches the first page.
func (q *Query) SetLimit(ctx context.Context, limit int) (*Page, api.Outcome) {
	q.update(func(s State) State { return s.WithLimit(limit) })
	return q.Fetch(ctx)
}

// SetSort changes the sort and fetches the first page.
func (q *Query) SetSort(ctx context.Context, by string, order SortOrder) (*Page, api.Outcome) {
	q.update(func(s State) State { return s.WithSort(by, order) })
	return q.Fetch(ctx)
}

// SetFilterDebounced sets one filter immediately but delays the fetch
// until no other debounced change arrives for the quiet period. The
// result goes to the handler set with WithResultHandler.
func (q *Query) SetFilterDebounced(ctx context.Context, name, value string) {
	q.update(func(s State) State { return s.WithFilter(name, value) })
	q.debouncer.Trigger(func() {
		page, out := q.Fetch(ctx)
		if q.onResult != nil {
			q.onResult(page, out)
		}
	})
}

// Close cancels a pending debounced fetch.
func (q *Query) Close() {
	q.debouncer.Close()
}

func (q *Query) update(f func(State) State) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = f(q.state)
}
