package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/logging"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/query"
	"github.com/hpungsan/vicdash/internal/vic"
)

type stubBackend struct {
	mu       sync.Mutex
	ideas    []vic.Idea
	failMore error
	last     filters.Params
	details  map[string]*vic.IdeaDetail
}

func (s *stubBackend) ListIdeas(_ context.Context, p filters.Params) ([]vic.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = p
	if p.Offset() > 0 && s.failMore != nil {
		return nil, s.failMore
	}

	var matched []vic.Idea
	for _, idea := range s.ideas {
		if p.IsContestWinner != nil && idea.IsContestWinner != *p.IsContestWinner {
			continue
		}
		if p.IsShort != nil && idea.IsShort != *p.IsShort {
			continue
		}
		matched = append(matched, idea)
	}

	start, end := p.Offset(), p.Offset()+p.PageSize()
	if start >= len(matched) {
		return []vic.Idea{}, nil
	}
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *stubBackend) GetIdea(_ context.Context, id string) (*vic.IdeaDetail, error) {
	if d, ok := s.details[id]; ok {
		return d, nil
	}
	return nil, errors.NewServer(404, "Not Found")
}

func (s *stubBackend) GetIdeaPerformance(context.Context, string) (*vic.Performance, error) {
	return nil, errors.NewServer(404, "Not Found")
}

func (s *stubBackend) GetIdeaDescription(context.Context, string) (*vic.Description, error) {
	return nil, errors.NewServer(404, "Not Found")
}

func (s *stubBackend) GetIdeaCatalysts(context.Context, string) (*vic.Catalysts, error) {
	return nil, errors.NewServer(404, "Not Found")
}

func (s *stubBackend) ListCompanies(context.Context, filters.Params) ([]vic.Company, error) {
	return nil, nil
}

func (s *stubBackend) ListUsers(context.Context, filters.Params) ([]vic.User, error) {
	return nil, nil
}

func (s *stubBackend) Health(context.Context) (*vic.HealthStatus, error) {
	return &vic.HealthStatus{Status: "healthy"}, nil
}

func (s *stubBackend) lastParams() filters.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// newTestModel builds a browser over 12 ideas with a page size of 5.
// Every third idea is a contest winner.
func newTestModel(t *testing.T) (Model, *stubBackend) {
	t.Helper()
	stub := &stubBackend{details: map[string]*vic.IdeaDetail{}}
	for i := 0; i < 12; i++ {
		stub.ideas = append(stub.ideas, vic.Idea{
			ID:              fmt.Sprintf("idea-%02d", i),
			CompanyID:       fmt.Sprintf("TK%02d", i),
			UserID:          "buffett",
			IsShort:         i%2 == 1,
			IsContestWinner: i%3 == 0,
		})
	}
	q := query.New(stub, query.Options{Size: 32, Logger: logging.Discard()})
	return New(q, 5, ""), stub
}

// collect runs cmd and every batched command under it, returning the
// messages produced. Nil commands are skipped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drain feeds the fetch results of cmd back into m. Spinner ticks and
// cursor blinks are dropped.
func drain(m Model, cmd tea.Cmd) Model {
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case pageMsg, detailMsg:
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

// pressAndDrain presses k and applies whatever it fetched.
func pressAndDrain(m Model, k string) Model {
	m, cmd := press(m, k)
	return drain(m, cmd)
}

func ids(m Model) []string {
	var out []string
	for _, idea := range m.ideas.State().Items {
		out = append(out, idea.ID)
	}
	return out
}

func TestInitLoadsFirstPage(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	if got := m.ideas.State().Len(); got != 5 {
		t.Fatalf("items = %d, want 5", got)
	}
	if m.pending != 0 {
		t.Errorf("pending = %d, want 0", m.pending)
	}
	view := m.View()
	if !strings.Contains(view, "5 ideas. Press m to load more.") {
		t.Errorf("footer missing from view:\n%s", view)
	}
	if !strings.Contains(view, "> ") {
		t.Error("cursor marker missing")
	}
}

func TestLoadMoreUntilExhausted(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	m = pressAndDrain(m, "m")
	if got := m.ideas.State().Len(); got != 10 {
		t.Fatalf("after one load more: %d items, want 10", got)
	}

	m = pressAndDrain(m, "m")
	m = pressAndDrain(m, "m")
	state := m.ideas.State()
	if state.Len() != 12 {
		t.Errorf("items = %d, want 12", state.Len())
	}
	if !state.Exhausted() {
		t.Error("expected exhausted after an empty page")
	}
	if !strings.Contains(m.View(), "No more ideas to load.") {
		t.Error("exhausted footer missing")
	}

	// further presses do nothing
	if _, cmd := press(m, "m"); cmd != nil {
		t.Error("load more on an exhausted list should not fetch")
	}
}

func TestLoadMoreFailureKeepsList(t *testing.T) {
	m, stub := newTestModel(t)
	m = drain(m, m.Init())
	stub.failMore = errors.NewNetwork(fmt.Errorf("connection reset"))

	m = pressAndDrain(m, "m")

	if got := m.ideas.State().Len(); got != 5 {
		t.Errorf("items = %d, want the original 5", got)
	}
	view := m.View()
	if !strings.Contains(view, "Error loading more ideas: "+errors.NetworkMessage) {
		t.Errorf("inline error missing:\n%s", view)
	}
	if !strings.Contains(view, "idea-00") && !strings.Contains(view, "TK00") {
		t.Error("existing rows should still render")
	}
}

func TestDirectionCycle(t *testing.T) {
	m, stub := newTestModel(t)
	m = drain(m, m.Init())

	wantURLs := []string{"/ideas?is_short=false", "/ideas?is_short=true", "/ideas"}
	for i, want := range wantURLs {
		m = pressAndDrain(m, "s")
		if got := m.ctl.URL(); got != want {
			t.Errorf("press %d: url = %q, want %q", i+1, got, want)
		}
	}

	m = pressAndDrain(m, "s")
	if v, ok := stub.lastParams().Get(filters.KeyIsShort); !ok || v != "false" {
		t.Errorf("backend is_short = %q, %v", v, ok)
	}
	for _, idea := range m.ideas.State().Items {
		if idea.IsShort {
			t.Errorf("long filter returned short idea %s", idea.ID)
		}
	}
}

func TestToggles(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	m = pressAndDrain(m, "w")
	m = pressAndDrain(m, "p")
	m = pressAndDrain(m, "o")
	if got, want := m.ctl.URL(), "/ideas?has_performance=true&is_contest_winner=true&sort_order=asc"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	m = pressAndDrain(m, "o")
	m = pressAndDrain(m, "w")
	if got, want := m.ctl.URL(), "/ideas?has_performance=true&sort_order=desc"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	m = pressAndDrain(m, "c")
	if got := m.ctl.URL(); got != "/ideas" {
		t.Errorf("url after clear = %q", got)
	}
}

func TestStalePageDiscarded(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	// a load more is in flight when the filter changes
	m, moreCmd := press(m, "m")
	m, filterCmd := press(m, "w")

	m = drain(m, filterCmd)
	m = drain(m, moreCmd)

	for _, idea := range m.ideas.State().Items {
		if !idea.IsContestWinner {
			t.Errorf("stale page leaked non-winner %s into the list", idea.ID)
		}
	}
	if got := m.ideas.State().Len(); got != 4 {
		t.Errorf("items = %d, want the 4 winners", got)
	}
	if m.pending != 0 {
		t.Errorf("pending = %d, want 0", m.pending)
	}
}

func TestSupersededFailureShowsNoError(t *testing.T) {
	m, stub := newTestModel(t)
	m = drain(m, m.Init())

	// the load more fails, but only after the filter already changed
	stub.failMore = errors.NewServer(500, "Internal Server Error")
	m, moreCmd := press(m, "m")
	m, filterCmd := press(m, "w")

	m = drain(m, filterCmd)
	m = drain(m, moreCmd)

	if m.err != nil {
		t.Errorf("err = %v, want nil for a request of old filters", m.err)
	}
	if strings.Contains(m.View(), "Error loading more ideas") {
		t.Error("stale failure shown over the newer list")
	}
	if got := m.ideas.State().Len(); got != 4 {
		t.Errorf("items = %d, want the 4 winners", got)
	}
}

func TestOutOfOrderFilterChanges(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	m, longCmd := press(m, "s")  // is_short=false
	m, shortCmd := press(m, "s") // is_short=true

	m = drain(m, shortCmd)
	m = drain(m, longCmd)

	for _, idea := range m.ideas.State().Items {
		if !idea.IsShort {
			t.Errorf("older filter response overwrote the newer list: %v", ids(m))
			break
		}
	}
}

func TestSearch(t *testing.T) {
	m, stub := newTestModel(t)
	m = drain(m, m.Init())

	m, _ = press(m, "/")
	if m.mode != modeSearch {
		t.Fatalf("mode = %v, want search", m.mode)
	}
	m, _ = press(m, "bank")
	m = pressAndDrain(m, "enter")

	if m.mode != modeList {
		t.Errorf("mode = %v, want list", m.mode)
	}
	if got := m.ctl.URL(); got != "/ideas?search=bank" {
		t.Errorf("url = %q", got)
	}
	if v, _ := stub.lastParams().Get(filters.KeySearch); v != "bank" {
		t.Errorf("backend search = %q", v)
	}

	// esc leaves the search unchanged
	m, _ = press(m, "/")
	m, _ = press(m, "x")
	m, cmd := press(m, "esc")
	if cmd != nil || m.ctl.URL() != "/ideas?search=bank" {
		t.Errorf("esc should cancel the edit, url = %q", m.ctl.URL())
	}
}

func TestDetailView(t *testing.T) {
	m, stub := newTestModel(t)
	up := 12.5
	stub.details["idea-01"] = &vic.IdeaDetail{
		Idea:        vic.Idea{ID: "idea-01", CompanyID: "TK01", UserID: "buffett", IsShort: true},
		Company:     &vic.Company{Ticker: "TK01", CompanyName: "Tick One"},
		Performance: &vic.Performance{OneYearPerf: &up},
	}
	m = drain(m, m.Init())

	m, _ = press(m, "down")
	m = pressAndDrain(m, "enter")
	if m.mode != modeDetail {
		t.Fatalf("mode = %v, want detail", m.mode)
	}

	view := m.View()
	for _, want := range []string{"Tick One (TK01)", "Short", "No description available", "-12.5%", "N/A"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}

	m, _ = press(m, "esc")
	if m.mode != modeList || m.detail != nil {
		t.Error("esc should return to the list")
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1 after returning", m.cursor)
	}
}

func TestDetailNotFound(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(m, m.Init())

	m = pressAndDrain(m, "enter")
	if !strings.Contains(m.View(), "Server error: 404 Not Found") {
		t.Errorf("view = %q", m.View())
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestEmptyList(t *testing.T) {
	m, stub := newTestModel(t)
	stub.ideas = nil
	m = drain(m, m.Init())

	if !strings.Contains(m.View(), "No investment ideas found matching your criteria.") {
		t.Errorf("empty state missing:\n%s", m.View())
	}
	if _, cmd := press(m, "enter"); cmd != nil {
		t.Error("enter on an empty list should do nothing")
	}
}

func TestCycle(t *testing.T) {
	tests := []struct {
		cur    string
		states []string
		want   string
	}{
		{"", []string{"", "false", "true"}, "false"},
		{"true", []string{"", "false", "true"}, ""},
		{"bogus", []string{"desc", "asc"}, "desc"},
	}
	for _, tt := range tests {
		if got := cycle(tt.cur, tt.states...); got != tt.want {
			t.Errorf("cycle(%q, %v) = %q, want %q", tt.cur, tt.states, got, tt.want)
		}
	}
}

func TestChart(t *testing.T) {
	up, down := 20.0, -5.0
	points := perf.Series(&vic.Performance{OneWeekClosePerf: &up, OneMonthPerf: &down}, false)

	out := chart(points, 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 bars, got %d:\n%s", len(lines), out)
	}
	if strings.Count(lines[0], "█") != 10 {
		t.Errorf("largest bar should fill the width: %q", lines[0])
	}
	if strings.Count(lines[1], "█") != 2 {
		t.Errorf("quarter bar should be 2 wide: %q", lines[1])
	}
	if !strings.Contains(lines[1], "-5.0%") {
		t.Errorf("bar missing value: %q", lines[1])
	}
}
