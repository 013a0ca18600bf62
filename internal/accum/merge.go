// Package accum accumulates successive list pages into one de-duplicated,
// order-preserving list for "load more" browsing.
package accum

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// Phase is the merger state.
type Phase int

const (
	Empty Phase = iota
	Accumulating
)

func (p Phase) String() string {
	if p == Accumulating {
		return "accumulating"
	}
	return "empty"
}

// EventKind distinguishes a new filter set from a further page of the same one.
type EventKind int

const (
	// FilterChanged replaces the list: first fetch, offset 0, or a new filter key.
	FilterChanged EventKind = iota
	// PageFetched appends unseen items: offset > 0 under the same filter key.
	PageFetched
)

func (k EventKind) String() string {
	if k == PageFetched {
		return "page_fetched"
	}
	return "filter_changed"
}

// Event is one fetched page.
type Event[T any] struct {
	Kind      EventKind
	FilterKey string
	Offset    int
	Page      []T

	// Seq tags the request that produced Page. The zero ULID means untagged.
	Seq ulid.ULID
}

// State is the accumulated list. The zero value is Empty.
// States are values: Apply never mutates its input.
type State[T any] struct {
	Phase       Phase
	Items       []T
	FilterKey   string
	LastPageLen int
	LastSeq     ulid.ULID

	seen map[string]struct{}
}

// Len returns the number of accumulated items.
func (s State[T]) Len() int { return len(s.Items) }

// Seen reports whether id is in the list.
func (s State[T]) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Exhausted reports whether the most recent page came back empty.
// "Load more" is disabled in that case and only in that case.
func (s State[T]) Exhausted() bool {
	return s.Phase == Accumulating && s.LastPageLen == 0
}

// Result describes what an event did.
type Result[T any] struct {
	// Added holds the items that became visible, in order. For a replace it
	// is the whole new list.
	Added []T

	Replaced  bool
	Discarded bool
}

// Apply is Step without the Result.
func Apply[T any](s State[T], ev Event[T], id func(T) string) State[T] {
	next, _ := Step(s, ev, id)
	return next
}

// Step applies ev to s.
//
// A replace happens on the first event and on FilterChanged. A PageFetched
// event appends the items whose id has not been seen, keeping fetched
// order; a page of only seen items leaves the list unchanged.
//
// Stale events are discarded and s is returned as is: a PageFetched whose
// filter key differs from the list's, or any tagged event whose Seq is not
// newer than the last applied one.
func Step[T any](s State[T], ev Event[T], id func(T) string) (State[T], Result[T]) {
	if isStale(s, ev) {
		return s, Result[T]{Discarded: true}
	}

	if s.Phase == Empty || ev.Kind == FilterChanged {
		return replace(ev, id)
	}

	items := slices.Clip(s.Items)
	seen := make(map[string]struct{}, len(s.seen)+len(ev.Page))
	for k := range s.seen {
		seen[k] = struct{}{}
	}

	var added []T
	for _, item := range ev.Page {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		added = append(added, item)
	}
	if len(added) > 0 {
		items = append(items, added...)
	}

	next := State[T]{
		Phase:       Accumulating,
		Items:       items,
		FilterKey:   s.FilterKey,
		LastPageLen: len(ev.Page),
		LastSeq:     newer(s.LastSeq, ev.Seq),
		seen:        seen,
	}
	return next, Result[T]{Added: added}
}

func replace[T any](ev Event[T], id func(T) string) (State[T], Result[T]) {
	items := make([]T, 0, len(ev.Page))
	seen := make(map[string]struct{}, len(ev.Page))
	for _, item := range ev.Page {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	next := State[T]{
		Phase:       Accumulating,
		Items:       items,
		FilterKey:   ev.FilterKey,
		LastPageLen: len(ev.Page),
		LastSeq:     ev.Seq,
		seen:        seen,
	}
	return next, Result[T]{Added: slices.Clip(items), Replaced: true}
}

func isStale[T any](s State[T], ev Event[T]) bool {
	if s.Phase == Empty {
		return false
	}
	if ev.Kind == PageFetched && ev.FilterKey != s.FilterKey {
		return true
	}
	if ev.Seq.IsZero() || s.LastSeq.IsZero() {
		return false
	}
	return ev.Seq.Compare(s.LastSeq) <= 0
}

func newer(a, b ulid.ULID) ulid.ULID {
	if b.Compare(a) > 0 {
		return b
	}
	return a
}
