package accum

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/ids"
)

// Ticket identifies one outstanding page request.
type Ticket struct {
	Params filters.Params
	Seq    ulid.ULID
}

// EventFor classifies a page fetched with p. Offset 0 is a filter change;
// anything later is a further page of p's filter key.
func EventFor[T any](p filters.Params, seq ulid.ULID, page []T) Event[T] {
	kind := PageFetched
	if p.IsFirstPage() {
		kind = FilterChanged
	}
	return Event[T]{
		Kind:      kind,
		FilterKey: p.FilterKey(),
		Offset:    p.Offset(),
		Page:      page,
		Seq:       seq,
	}
}

// Tracker owns one accumulated list and the params of its last applied page.
// It is safe for concurrent use.
type Tracker[T any] struct {
	mu     sync.Mutex
	id     func(T) string
	state  State[T]
	params filters.Params
	loaded bool
}

// NewTracker returns an empty tracker keyed by id.
func NewTracker[T any](id func(T) string) *Tracker[T] {
	return &Tracker[T]{id: id}
}

// Begin tags a request for p. Tickets issued later always win over earlier ones.
func (t *Tracker[T]) Begin(p filters.Params) Ticket {
	return Ticket{Params: p.Clone(), Seq: ids.New()}
}

// Deliver applies a successful page for tk.
func (t *Tracker[T]) Deliver(tk Ticket, page []T) Result[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, res := Step(t.state, EventFor(tk.Params, tk.Seq, page), t.id)
	if !res.Discarded {
		t.state = next
		t.params = tk.Params
		t.loaded = true
	}
	return res
}

// Load begins a request for p, runs fetch and delivers the page. A failed
// fetch leaves the accumulated list untouched.
func (t *Tracker[T]) Load(ctx context.Context, p filters.Params, fetch func(context.Context, filters.Params) ([]T, error)) (Result[T], error) {
	tk := t.Begin(p)
	page, err := fetch(ctx, tk.Params)
	if err != nil {
		return Result[T]{}, err
	}
	return t.Deliver(tk, page), nil
}

// LoadMore fetches the page after the last applied one. Exhausted lists
// are not fetched again.
func (t *Tracker[T]) LoadMore(ctx context.Context, fetch func(context.Context, filters.Params) ([]T, error)) (Result[T], error) {
	next, ok := t.Next()
	if !ok {
		return Result[T]{}, nil
	}
	return t.Load(ctx, next, fetch)
}

// Next returns the params for the following page. ok is false before the
// first page and once the list is exhausted.
func (t *Tracker[T]) Next() (filters.Params, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded || t.state.Exhausted() {
		return filters.Params{}, false
	}
	return t.params.NextPage(), true
}

// State returns a snapshot. Items must not be modified by the caller.
func (t *Tracker[T]) State() State[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Params returns the params of the last applied page.
func (t *Tracker[T]) Params() (filters.Params, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.Clone(), t.loaded
}

// Reset drops everything.
func (t *Tracker[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State[T]{}
	t.params = filters.Params{}
	t.loaded = false
}
