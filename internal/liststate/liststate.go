// Package liststate binds a resource client's list operation to a set of
// filter inputs and tracks the resulting view state (items, loading, error,
// pagination) for one list screen.
package liststate

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// Status is the position of a list in its fetch state machine
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Policy decides which of several overlapping fetches may write state
type Policy int

const (
	// LatestRequestWins applies a result only when it belongs to the most
	// recently issued fetch, and cancels superseded fetches.
	LatestRequestWins Policy = iota
	// LastResolvedWins lets every fetch run to completion and applies
	// whichever resolves last.
	LastResolvedWins
)

func (p Policy) String() string {
	switch p {
	case LatestRequestWins:
		return "latest_request_wins"
	case LastResolvedWins:
		return "last_resolved_wins"
	default:
		return "unknown"
	}
}

// FetchFunc loads one page for the given filters
type FetchFunc[T, F any] func(ctx context.Context, filters F) (*models.PaginatedEnvelope[T], error)

// State is a snapshot of a list's view state
type State[T any] struct {
	Items   []T
	Loading bool
	// Error is the fixed user-facing message; empty when there is no error
	Error string
	// Err and ErrorKind keep the underlying failure for richer rendering
	Err        error
	ErrorKind  client.ErrorKind
	Pagination models.PaginationMeta
	Status     Status
	// Seq is the fetch this state belongs to: the one in flight while
	// loading, the one that resolved otherwise
	Seq uint64
}

// Config tunes a List
type Config struct {
	// Name labels the list in logs and in the default error message
	Name string
	// ErrorMessage is shown instead of the raw error; defaults to
	// "Failed to fetch <Name>"
	ErrorMessage string
	Policy       Policy
	// Timeout bounds each fetch; zero means no timeout
	Timeout time.Duration
	Logger  *slog.Logger
}

// List owns the view state of one list screen. All methods are safe for
// concurrent use. Subscribers are called in transition order and must not
// call SetFilters, Update, Refetch, Mount or Close.
type List[T, F any] struct {
	fetch  FetchFunc[T, F]
	cfg    Config
	logger *slog.Logger

	// notifyMu serializes state transitions with their delivery
	notifyMu sync.Mutex

	mu       sync.Mutex
	state    State[T]
	filters  F
	seq      uint64
	inflight map[uint64]context.CancelFunc
	subs     []func(State[T])
	ctx      context.Context
	cancel   context.CancelFunc
	mounted  bool
	closed   bool

	wg sync.WaitGroup
}

// New creates an unmounted list with initial filters
func New[T, F any](fetch FetchFunc[T, F], initial F, cfg Config) *List[T, F] {
	if cfg.Name == "" {
		cfg.Name = "items"
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "Failed to fetch " + cfg.Name
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &List[T, F]{
		fetch:    fetch,
		cfg:      cfg,
		logger:   logger.With("list", cfg.Name),
		filters:  initial,
		inflight: make(map[uint64]context.CancelFunc),
		state:    State[T]{Items: []T{}, Status: StatusIdle},
	}
}

// Mount starts the first fetch. Fetches derive their context from ctx.
// Mounting twice is a no-op.
func (l *List[T, F]) Mount(ctx context.Context) {
	l.mu.Lock()
	if l.mounted || l.closed {
		l.mu.Unlock()
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.mounted = true
	l.mu.Unlock()

	l.trigger()
}

// SetFilters replaces the filters and refetches when they differ from the
// current value. It reports whether a change happened.
func (l *List[T, F]) SetFilters(filters F) bool {
	l.mu.Lock()
	if l.closed || reflect.DeepEqual(l.filters, filters) {
		l.mu.Unlock()
		return false
	}
	l.filters = filters
	mounted := l.mounted
	l.mu.Unlock()

	if mounted {
		l.trigger()
	}
	return true
}

// Update derives new filters from the current ones
func (l *List[T, F]) Update(fn func(F) F) bool {
	return l.SetFilters(fn(l.Filters()))
}

// Refetch reloads the current filters unconditionally
func (l *List[T, F]) Refetch() {
	l.mu.Lock()
	ok := l.mounted && !l.closed
	l.mu.Unlock()
	if ok {
		l.trigger()
	}
}

// Filters returns the current filters
func (l *List[T, F]) Filters() F {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filters
}

// State returns a snapshot of the current state
func (l *List[T, F]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (l *List[T, F]) Subscribe(fn func(State[T])) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subs = append(l.subs, fn)
	idx := len(l.subs) - 1
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if idx < len(l.subs) {
			l.subs[idx] = nil
		}
	}
}

// Wait blocks until no fetch is in flight
func (l *List[T, F]) Wait() {
	l.wg.Wait()
}

// Close unmounts the list. In-flight fetches are cancelled and no state
// update is applied after Close returns.
func (l *List[T, F]) Close() {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for seq, cancel := range l.inflight {
		cancel()
		delete(l.inflight, seq)
	}
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *List[T, F]) snapshotLocked() State[T] {
	s := l.state
	s.Items = append([]T(nil), l.state.Items...)
	return s
}

// trigger enters Loading synchronously and dispatches a fetch
func (l *List[T, F]) trigger() {
	l.notifyMu.Lock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.notifyMu.Unlock()
		return
	}

	l.seq++
	seq := l.seq
	filters := l.filters

	if l.cfg.Policy == LatestRequestWins {
		for prev, cancel := range l.inflight {
			cancel()
			delete(l.inflight, prev)
		}
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if l.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(l.ctx, l.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(l.ctx)
	}
	l.inflight[seq] = cancel
	l.wg.Add(1)

	l.state.Loading = true
	l.state.Status = StatusLoading
	l.state.Seq = seq
	l.state.Error = ""
	l.state.Err = nil
	l.state.ErrorKind = ""

	snap, subs := l.snapshotLocked(), l.subscribersLocked()
	l.mu.Unlock()

	deliver(subs, snap)
	l.notifyMu.Unlock()

	l.logger.Debug("List fetch dispatched", "seq", seq, "policy", l.cfg.Policy.String())
	go l.run(ctx, cancel, seq, filters)
}

func (l *List[T, F]) run(ctx context.Context, cancel context.CancelFunc, seq uint64, filters F) {
	defer l.wg.Done()
	defer cancel()

	page, err := l.fetch(ctx, filters)

	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	delete(l.inflight, seq)

	if l.closed {
		l.mu.Unlock()
		return
	}
	if latest := l.seq; l.cfg.Policy == LatestRequestWins && seq != latest {
		l.mu.Unlock()
		l.logger.Debug("Discarded superseded list fetch", "seq", seq, "latest_seq", latest)
		return
	}

	l.state.Loading = false
	l.state.Seq = seq
	if err != nil {
		kind := client.KindOf(err)
		l.state.Status = StatusError
		l.state.Error = l.cfg.ErrorMessage
		l.state.Err = err
		l.state.ErrorKind = kind
		l.logger.Error(l.cfg.ErrorMessage,
			"seq", seq,
			"error_kind", string(kind),
			"status_code", client.StatusOf(err),
			"error", err)
	} else {
		if page == nil {
			page = &models.PaginatedEnvelope[T]{}
		}
		items := page.Data
		if items == nil {
			items = []T{}
		}
		l.state.Status = StatusSuccess
		l.state.Items = items
		l.state.Pagination = page.Pagination()
		l.state.Error = ""
		l.state.Err = nil
		l.state.ErrorKind = ""
	}

	snap, subs := l.snapshotLocked(), l.subscribersLocked()
	l.mu.Unlock()

	deliver(subs, snap)
}

func (l *List[T, F]) subscribersLocked() []func(State[T]) {
	subs := make([]func(State[T]), 0, len(l.subs))
	for _, fn := range l.subs {
		if fn != nil {
			subs = append(subs, fn)
		}
	}
	return subs
}

func deliver[T any](subs []func(State[T]), s State[T]) {
	for _, fn := range subs {
		fn(s)
	}
}
