package accum

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/vicdash/internal/ids"
)

type item struct {
	ID    string
	Title string
}

func itemID(i item) string { return i.ID }

func items(idList ...string) []item {
	out := make([]item, len(idList))
	for i, id := range idList {
		out[i] = item{ID: id, Title: "title " + id}
	}
	return out
}

func idsOf(s State[item]) []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.ID
	}
	return out
}

func first(key string, page []item) Event[item] {
	return Event[item]{Kind: FilterChanged, FilterKey: key, Page: page}
}

func more(key string, offset int, page []item) Event[item] {
	return Event[item]{Kind: PageFetched, FilterKey: key, Offset: offset, Page: page}
}

func TestApply_ZeroStateIsEmpty(t *testing.T) {
	var s State[item]
	require.Equal(t, Empty, s.Phase)
	require.Equal(t, "empty", s.Phase.String())
	require.False(t, s.Exhausted())
	require.Zero(t, s.Len())
}

func TestApply_FirstFetchReplaces(t *testing.T) {
	var s State[item]
	s = Apply(s, first("k", items("a", "b")), itemID)

	require.Equal(t, Accumulating, s.Phase)
	require.Equal(t, []string{"a", "b"}, idsOf(s))
	require.True(t, s.Seen("a"))
	require.Equal(t, "k", s.FilterKey)
}

func TestApply_RepeatPageIsNoop(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s = Apply(s, more("k", 20, items("c", "d")), itemID)
	before := idsOf(s)

	s2, res := Step(s, more("k", 20, items("c", "d")), itemID)
	require.Equal(t, before, idsOf(s2))
	require.Empty(t, res.Added)
	require.False(t, res.Replaced)
}

func TestApply_OrderPreserved(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s = Apply(s, more("k", 2, items("c", "d")), itemID)
	require.Equal(t, []string{"a", "b", "c", "d"}, idsOf(s))
}

func TestApply_OverlapNotDuplicated(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s, res := Step(s, more("k", 2, items("b", "c")), itemID)
	require.Equal(t, []string{"a", "b", "c"}, idsOf(s))
	require.Len(t, res.Added, 1)
	require.Equal(t, "c", res.Added[0].ID)
}

func TestApply_FilterChangeResets(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s = Apply(s, more("k", 2, items("c")), itemID)
	require.Equal(t, []string{"a", "b", "c"}, idsOf(s))

	s, res := Step(s, first("k2", items("x", "y")), itemID)
	require.True(t, res.Replaced)
	require.Equal(t, []string{"x", "y"}, idsOf(s))
	require.False(t, s.Seen("a"))
	require.Equal(t, "k2", s.FilterKey)
}

func TestApply_SameFilterOffsetZeroStillReplaces(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s = Apply(s, more("k", 2, items("c")), itemID)
	s = Apply(s, first("k", items("a", "b")), itemID)
	require.Equal(t, []string{"a", "b"}, idsOf(s))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s1 := Apply(State[item]{}, first("k", items("a", "b")), itemID)
	s2 := Apply(s1, more("k", 2, items("c")), itemID)
	s3 := Apply(s1, more("k", 2, items("z")), itemID)

	require.Equal(t, []string{"a", "b"}, idsOf(s1))
	require.False(t, s1.Seen("c"))
	require.Equal(t, []string{"a", "b", "c"}, idsOf(s2))
	require.Equal(t, []string{"a", "b", "z"}, idsOf(s3))
}

func TestApply_Exhausted(t *testing.T) {
	s := Apply(State[item]{}, first("k", items("a")), itemID)
	require.False(t, s.Exhausted())

	// a page of only duplicates is not exhaustion
	s = Apply(s, more("k", 1, items("a")), itemID)
	require.False(t, s.Exhausted())

	s = Apply(s, more("k", 2, nil), itemID)
	require.True(t, s.Exhausted())
	require.Equal(t, []string{"a"}, idsOf(s))
}

func TestApply_EmptyFirstPageIsExhausted(t *testing.T) {
	s := Apply(State[item]{}, first("k", nil), itemID)
	require.Equal(t, Accumulating, s.Phase)
	require.True(t, s.Exhausted())
}

func TestStep_DiscardsPageForOtherFilter(t *testing.T) {
	s := Apply(State[item]{}, first("new", items("x")), itemID)
	s2, res := Step(s, more("old", 20, items("a", "b")), itemID)
	require.True(t, res.Discarded)
	require.Equal(t, []string{"x"}, idsOf(s2))
}

func TestStep_DiscardsOlderSeq(t *testing.T) {
	older := ids.New()
	newer := ids.New()

	ev := first("k2", items("x"))
	ev.Seq = newer
	s := Apply(State[item]{}, ev, itemID)

	late := first("k1", items("a"))
	late.Seq = older
	s2, res := Step(s, late, itemID)
	require.True(t, res.Discarded)
	require.Equal(t, []string{"x"}, idsOf(s2))
	require.Equal(t, newer, s2.LastSeq)
}

func TestStep_SameSeqTwiceIsDiscarded(t *testing.T) {
	seq := ids.New()
	ev := first("k", items("a"))
	ev.Seq = seq
	s := Apply(State[item]{}, ev, itemID)

	page := more("k", 1, items("b"))
	page.Seq = seq
	_, res := Step(s, page, itemID)
	require.True(t, res.Discarded)
}

func TestStep_UntaggedEventsAreNotSequenced(t *testing.T) {
	ev := first("k", items("a"))
	ev.Seq = ids.New()
	s := Apply(State[item]{}, ev, itemID)

	s = Apply(s, more("k", 1, items("b")), itemID)
	require.Equal(t, []string{"a", "b"}, idsOf(s))
	require.Equal(t, ev.Seq, s.LastSeq)
}

func TestEventKind_String(t *testing.T) {
	require.Equal(t, "filter_changed", FilterChanged.String())
	require.Equal(t, "page_fetched", PageFetched.String())
}

// genPages yields six pages of ids drawn from a small alphabet so overlap is common.
func genPages() gopter.Gen {
	return gen.SliceOfN(6, gen.SliceOf(gen.IntRange(0, 30)))
}

func pageOf(nums []int) []item {
	out := make([]item, len(nums))
	for i, n := range nums {
		out[i] = item{ID: fmt.Sprintf("id-%d", n)}
	}
	return out
}

func TestApply_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no duplicate ids under any page sequence", prop.ForAll(
		func(pages [][]int) bool {
			var s State[item]
			for i, p := range pages {
				if i == 0 {
					s = Apply(s, first("k", pageOf(p)), itemID)
				} else {
					s = Apply(s, more("k", i*20, pageOf(p)), itemID)
				}
			}
			seen := map[string]bool{}
			for _, it := range s.Items {
				if seen[it.ID] {
					return false
				}
				seen[it.ID] = true
			}
			return true
		},
		genPages(),
	))

	properties.Property("earlier lists are prefixes of later ones", prop.ForAll(
		func(pages [][]int) bool {
			var s State[item]
			var history [][]string
			for i, p := range pages {
				if i == 0 {
					s = Apply(s, first("k", pageOf(p)), itemID)
				} else {
					s = Apply(s, more("k", i*20, pageOf(p)), itemID)
				}
				history = append(history, idsOf(s))
			}
			final := idsOf(s)
			for _, h := range history {
				if len(h) > len(final) {
					return false
				}
				for j := range h {
					if h[j] != final[j] {
						return false
					}
				}
			}
			return true
		},
		genPages(),
	))

	properties.Property("applying a page twice equals applying it once", prop.ForAll(
		func(a, b []int) bool {
			s := Apply(State[item]{}, first("k", pageOf(a)), itemID)
			once := Apply(s, more("k", 20, pageOf(b)), itemID)
			twice := Apply(once, more("k", 20, pageOf(b)), itemID)
			return fmt.Sprint(idsOf(once)) == fmt.Sprint(idsOf(twice))
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.Property("later sequence always beats earlier", prop.ForAll(
		func(a, b []int) bool {
			s1, s2 := ids.New(), ids.New()
			evOld := first("old", pageOf(a))
			evOld.Seq = s1
			evNew := first("new", pageOf(b))
			evNew.Seq = s2

			// arrival order reversed
			s := Apply(State[item]{}, evNew, itemID)
			s = Apply(s, evOld, itemID)
			return s.FilterKey == "new" && s.LastSeq == s2
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.TestingRun(t)
}
