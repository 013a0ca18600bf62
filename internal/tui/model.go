// Package tui is the interactive terminal browser for investment ideas.
//
// All state changes happen inside Update. Fetches run as tea.Cmds and come
// back as messages tagged with the tracker ticket they were issued under, so
// a slow page for an old filter can never overwrite a newer list.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/query"
	"github.com/hpungsan/vicdash/internal/vic"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
)

// pageMsg carries one fetched page of ideas.
type pageMsg struct {
	ticket accum.Ticket
	items  []vic.Idea
	err    error
}

// detailMsg carries a fetched idea detail.
type detailMsg struct {
	id     string
	detail *vic.IdeaDetail
	err    error
}

// Model is the bubbletea model of the browser.
type Model struct {
	queries *query.Queries
	ctl     *filters.Controller
	ideas   *accum.Tracker[vic.Idea]

	keys    keyMap
	help    help.Model
	search  textinput.Model
	spinner spinner.Model

	mode    mode
	cursor  int
	pending int
	err     error

	detail    *vic.IdeaDetail
	detailID  string
	detailErr error

	width  int
	height int
}

// New creates a browser over q. query seeds the filters, e.g. "is_short=true".
func New(q *query.Queries, pageSize int, query string) Model {
	search := textinput.New()
	search.Placeholder = "company, ticker or text"
	search.Prompt = "/ "
	search.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = Muted

	return Model{
		queries: q,
		ctl:     filters.NewController("/ideas", query, pageSize, nil),
		ideas:   accum.NewTracker(vic.IdeaID),
		keys:    defaultKeys(),
		help:    help.New(),
		search:  search,
		spinner: sp,
		pending: 1,
		width:   80,
		height:  24,
	}
}

// Run starts the browser on the terminal and blocks until it quits.
func Run(q *query.Queries, pageSize int, query string) error {
	_, err := tea.NewProgram(New(q, pageSize, query), tea.WithAltScreen()).Run()
	return err
}

// Init loads the first page. New counts it as pending already.
func (m Model) Init() tea.Cmd {
	return m.request(m.ctl.Params().FirstPage())
}

func (m *Model) load(p filters.Params) tea.Cmd {
	m.pending++
	return m.request(p)
}

// request issues a page request. The ticket is taken here, inside Update,
// so request order is the order keys were pressed.
func (m Model) request(p filters.Params) tea.Cmd {
	tk := m.ideas.Begin(p)
	fetch := m.queries.IdeasFetcher()
	return tea.Batch(
		func() tea.Msg {
			items, err := fetch(context.Background(), tk.Params)
			return pageMsg{ticket: tk, items: items, err: err}
		},
		m.spinner.Tick,
	)
}

func (m *Model) openDetail(id string) tea.Cmd {
	m.mode = modeDetail
	m.detailID = id
	m.detail = nil
	m.detailErr = nil
	q := m.queries
	return func() tea.Msg {
		d, err := q.Detail(context.Background(), id)
		return detailMsg{id: id, detail: d, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			// the list stays as it was
			if !m.superseded(msg.ticket) {
				m.err = msg.err
			}
			return m, nil
		}
		res := m.ideas.Deliver(msg.ticket, msg.items)
		if !res.Discarded {
			m.err = nil
			if res.Replaced {
				m.cursor = 0
			}
		}
		m.clampCursor()
		return m, nil

	case detailMsg:
		if m.mode == modeDetail && msg.id == m.detailID {
			m.detail, m.detailErr = msg.detail, msg.err
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.ideas.State().Items

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if len(items) == 0 {
			return m, nil
		}
		return m, m.openDetail(items[m.cursor].ID)

	case key.Matches(msg, m.keys.More):
		next, ok := m.ideas.Next()
		if !ok {
			return m, nil
		}
		return m, m.load(next)

	case key.Matches(msg, m.keys.Direction):
		return m.setFilter(filters.KeyIsShort, cycle(m.value(filters.KeyIsShort), "", "false", "true"))

	case key.Matches(msg, m.keys.Winner):
		return m.setFilter(filters.KeyIsContestWinner, cycle(m.value(filters.KeyIsContestWinner), "", "true"))

	case key.Matches(msg, m.keys.Performance):
		return m.setFilter(filters.KeyHasPerformance, cycle(m.value(filters.KeyHasPerformance), "", "true"))

	case key.Matches(msg, m.keys.Order):
		order := m.value(filters.KeySortOrder)
		if order == "" {
			order = "desc"
		}
		return m.setFilter(filters.KeySortOrder, cycle(order, "desc", "asc"))

	case key.Matches(msg, m.keys.Reset):
		m.cursor = 0
		return m, m.load(m.ctl.Reset())

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.value(filters.KeySearch))
		m.search.CursorEnd()
		return m, m.search.Focus()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeList
		m.search.Blur()
		return m.setFilter(filters.KeySearch, m.search.Value())
	case tea.KeyEsc:
		m.mode = modeList
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = modeList
		m.detail, m.detailErr, m.detailID = nil, nil, ""
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// superseded reports whether a newer request has replaced tk: the filters
// changed since it was issued, or a later page was already applied.
func (m Model) superseded(tk accum.Ticket) bool {
	if tk.Params.FilterKey() != m.ctl.Params().FilterKey() {
		return true
	}
	last := m.ideas.State().LastSeq
	return !last.IsZero() && tk.Seq.Compare(last) <= 0
}

// setFilter applies one filter change and starts the list over.
func (m Model) setFilter(k, v string) (tea.Model, tea.Cmd) {
	p := m.ctl.Set(k, v)
	m.cursor = 0
	return m, m.load(p)
}

func (m Model) value(k string) string {
	v, _ := m.ctl.Params().Get(k)
	return v
}

func (m *Model) clampCursor() {
	n := m.ideas.State().Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// cycle returns the value after cur in states, wrapping around. An unknown
// cur starts from the first state.
func cycle(cur string, states ...string) string {
	for i, s := range states {
		if s == cur {
			return states[(i+1)%len(states)]
		}
	}
	return states[0]
}
