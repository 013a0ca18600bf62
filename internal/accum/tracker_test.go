package accum

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/vicdash/internal/filters"
)

// fakeBackend serves a fixed total of items in pages.
type fakeBackend struct {
	total    int
	requests []filters.Params
	fail     bool
}

func (b *fakeBackend) fetch(_ context.Context, p filters.Params) ([]item, error) {
	b.requests = append(b.requests, p)
	if b.fail {
		return nil, errors.New("boom")
	}
	var page []item
	for i := p.Offset(); i < p.Offset()+p.PageSize() && i < b.total; i++ {
		page = append(page, item{ID: fmt.Sprintf("idea-%d", i)})
	}
	return page, nil
}

func TestTracker_LoadMoreScenario(t *testing.T) {
	backend := &fakeBackend{total: 25}
	tr := NewTracker(itemID)

	_, ok := tr.Next()
	require.False(t, ok, "no next page before the first load")

	res, err := tr.Load(context.Background(), filters.Initial("", 20), backend.fetch)
	require.NoError(t, err)
	require.True(t, res.Replaced)
	require.Equal(t, 20, tr.State().Len())
	require.False(t, tr.State().Exhausted())

	res, err = tr.LoadMore(context.Background(), backend.fetch)
	require.NoError(t, err)
	require.Len(t, res.Added, 5)
	require.Equal(t, 20, backend.requests[1].Offset())
	require.Equal(t, 20, backend.requests[1].PageSize())
	require.Equal(t, 25, tr.State().Len())
	require.False(t, tr.State().Exhausted(), "a short page does not disable load more")

	_, err = tr.LoadMore(context.Background(), backend.fetch)
	require.NoError(t, err)
	require.Equal(t, 40, backend.requests[2].Offset())
	require.True(t, tr.State().Exhausted())
	require.Equal(t, 25, tr.State().Len())

	_, ok = tr.Next()
	require.False(t, ok)
	_, err = tr.LoadMore(context.Background(), backend.fetch)
	require.NoError(t, err)
	require.Len(t, backend.requests, 3, "exhausted list is not fetched again")
}

func TestTracker_FailedLoadKeepsItems(t *testing.T) {
	backend := &fakeBackend{total: 50}
	tr := NewTracker(itemID)

	_, err := tr.Load(context.Background(), filters.Initial("", 20), backend.fetch)
	require.NoError(t, err)

	backend.fail = true
	_, err = tr.LoadMore(context.Background(), backend.fetch)
	require.Error(t, err)
	require.Equal(t, 20, tr.State().Len())

	p, ok := tr.Params()
	require.True(t, ok)
	require.Equal(t, 0, p.Offset(), "failed page does not advance")
}

func TestTracker_FilterChangeReplaces(t *testing.T) {
	tr := NewTracker(itemID)
	p := filters.Initial("", 2)

	tr.Deliver(tr.Begin(p), items("a", "b"))
	tr.Deliver(tr.Begin(p.NextPage()), items("c"))
	require.Equal(t, []string{"a", "b", "c"}, idsOf(tr.State()))

	res := tr.Deliver(tr.Begin(p.Set(filters.KeyIsShort, "true")), items("x", "y"))
	require.True(t, res.Replaced)
	require.Equal(t, []string{"x", "y"}, idsOf(tr.State()))
}

func TestTracker_OutOfOrderArrival(t *testing.T) {
	tr := NewTracker(itemID)
	oldFilter := filters.Initial("search=old", 2)
	newFilter := filters.Initial("search=new", 2)

	tr.Deliver(tr.Begin(oldFilter), items("a", "b"))

	// load more for the old filter is outstanding when the filter changes
	stale := tr.Begin(oldFilter.NextPage())
	fresh := tr.Begin(newFilter)

	tr.Deliver(fresh, items("x"))
	res := tr.Deliver(stale, items("c", "d"))
	require.True(t, res.Discarded)
	require.Equal(t, []string{"x"}, idsOf(tr.State()))

	p, _ := tr.Params()
	require.Equal(t, newFilter.FilterKey(), p.FilterKey())
}

func TestTracker_SupersededFilterChange(t *testing.T) {
	tr := NewTracker(itemID)
	a := tr.Begin(filters.Initial("company_id=AAA", 20))
	b := tr.Begin(filters.Initial("company_id=BBB", 20))

	tr.Deliver(b, items("b1"))
	res := tr.Deliver(a, items("a1"))
	require.True(t, res.Discarded)
	require.Equal(t, []string{"b1"}, idsOf(tr.State()))
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(itemID)
	tr.Deliver(tr.Begin(filters.Initial("", 20)), items("a"))
	tr.Reset()
	require.Equal(t, Empty, tr.State().Phase)
	_, ok := tr.Params()
	require.False(t, ok)
}

func TestEventFor(t *testing.T) {
	p := filters.Initial("is_short=true", 20)
	ev := EventFor(p, ulid.ULID{}, items("a"))
	require.Equal(t, FilterChanged, ev.Kind)
	require.Equal(t, "is_short=true", ev.FilterKey)

	ev = EventFor(p.NextPage(), ulid.ULID{}, items("b"))
	require.Equal(t, PageFetched, ev.Kind)
	require.Equal(t, 20, ev.Offset)
	require.Equal(t, p.FilterKey(), ev.FilterKey)
}
