package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/vic"
)

// chrome is the number of lines around the list: title, filters, blank,
// footer, blank, help.
const chrome = 6

// View renders the current screen.
func (m Model) View() string {
	if m.mode == modeDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(Title.Render("VIC Ideas"))
	b.WriteString("  ")
	b.WriteString(Subtitle.Render(m.ctl.URL()))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(Muted.Render(m.filterSummary()))
	}
	b.WriteString("\n\n")

	state := m.ideas.State()
	switch {
	case state.Len() == 0 && m.pending > 0:
		b.WriteString(m.spinner.View() + " Loading ideas...\n")
	case state.Len() == 0 && m.err == nil:
		b.WriteString(Muted.Render("No investment ideas found matching your criteria.") + "\n")
	default:
		start, end := m.visible(state.Len())
		for i := start; i < end; i++ {
			b.WriteString(m.row(state.Items[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.footer(state.Len(), state.Exhausted()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) row(idea vic.Idea, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}

	direction := Positive.Render(fmt.Sprintf("%-5s", idea.Direction()))
	if idea.IsShort {
		direction = Negative.Render(fmt.Sprintf("%-5s", idea.Direction()))
	}

	line := fmt.Sprintf("%-12s  %-8s  %s  %s", idea.Date.Short(), idea.CompanyID, direction, idea.UserID)
	if idea.IsContestWinner {
		line += "  " + Winner.Render("Winner")
	}
	if selected {
		return marker + Selected.Render(line)
	}
	return marker + line
}

// visible returns the window of rows that keeps the cursor on screen.
func (m Model) visible(n int) (int, int) {
	rows := m.height - chrome
	if rows < 1 {
		rows = 1
	}
	if n <= rows {
		return 0, n
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m Model) footer(n int, exhausted bool) string {
	switch {
	case m.err != nil:
		return ErrorText.Render("Error loading more ideas: " + errors.As(m.err).Message)
	case m.pending > 0 && n > 0:
		return m.spinner.View() + " Loading..."
	case exhausted:
		return Muted.Render(fmt.Sprintf("%d ideas. No more ideas to load.", n))
	case n > 0:
		return Muted.Render(fmt.Sprintf("%d ideas. Press m to load more.", n))
	}
	return ""
}

func (m Model) filterSummary() string {
	p := m.ctl.Params()
	var parts []string
	for _, k := range p.Active() {
		v, _ := p.Get(k)
		parts = append(parts, k+"="+v)
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewDetail() string {
	var b strings.Builder
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	text := lipgloss.NewStyle().Width(width)

	switch {
	case m.detailErr != nil:
		b.WriteString(ErrorText.Render(errors.As(m.detailErr).Message))
		b.WriteString("\n\n" + Muted.Render("esc to go back"))
		return b.String()
	case m.detail == nil:
		return m.spinner.View() + " Loading idea..."
	}

	d := m.detail
	b.WriteString(Title.Render(d.DisplayName()))
	b.WriteString("\n")
	direction := Positive.Render(d.Direction())
	if d.IsShort {
		direction = Negative.Render(d.Direction())
	}
	b.WriteString(fmt.Sprintf("%s  by %s  posted %s", direction, d.AuthorName(), d.Date.Long()))
	if d.IsContestWinner {
		b.WriteString("  " + Winner.Render("Contest Winner"))
	}
	b.WriteString("\n")

	b.WriteString(Section.Render("Investment Thesis") + "\n")
	if d.Description != nil && strings.TrimSpace(d.Description.Description) != "" {
		b.WriteString(text.Render(strings.TrimSpace(d.Description.Description)) + "\n")
	} else {
		b.WriteString(Muted.Render("No description available") + "\n")
	}

	if d.Catalysts != nil && strings.TrimSpace(d.Catalysts.Catalysts) != "" {
		b.WriteString(Section.Render("Catalysts") + "\n")
		b.WriteString(text.Render(strings.TrimSpace(d.Catalysts.Catalysts)) + "\n")
	}

	b.WriteString(Section.Render("Performance") + "\n")
	if d.Performance.HasAny() {
		for _, row := range perf.Rows(d.Performance, d.IsShort) {
			b.WriteString(fmt.Sprintf("  %-15s %s\n", row.Label, value(row.Value)))
		}
		if bars := chart(perf.Series(d.Performance, d.IsShort), width-30); bars != "" {
			b.WriteString(Section.Render("Chart") + "\n")
			b.WriteString(bars)
		}
	} else {
		b.WriteString(Muted.Render("No performance data available") + "\n")
	}

	if d.Link != "" {
		b.WriteString("\n" + Muted.Render(d.Link) + "\n")
	}
	b.WriteString("\n" + Muted.Render("esc back  q quit"))
	return b.String()
}

func value(v perf.Value) string {
	switch v.Polarity {
	case perf.Positive:
		return Positive.Render(v.Display)
	case perf.Negative:
		return Negative.Render(v.Display)
	default:
		return Muted.Render("N/A")
	}
}

// chart draws one horizontal bar per point, scaled to cols columns.
func chart(points []perf.Point, cols int) string {
	if cols < 10 {
		cols = 10
	}
	var b strings.Builder
	for _, pt := range points {
		n := int(pt.Width * float64(cols))
		if n == 0 && pt.Adjusted != 0 {
			n = 1
		}
		bar := strings.Repeat("█", n)
		if pt.Polarity == perf.Positive {
			bar = Positive.Render(bar)
		} else {
			bar = Negative.Render(bar)
		}
		b.WriteString(fmt.Sprintf("  %-15s %s %s\n", pt.Label, bar, pt.Display))
	}
	return b.String()
}
