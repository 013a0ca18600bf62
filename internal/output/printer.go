// Package output renders CLI results as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/vic"
)

// Format selects how results are written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be table or json", s)
	}
}

// ColorMode represents color output mode
type ColorMode int

const (
	// ColorAuto enables colors based on environment (default)
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever forces colors off
	ColorNever
)

// ParseColorMode parses a string into a ColorMode
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors determines whether to use colors based on mode and environment.
// NO_COLOR wins over everything except ColorAlways.
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return !color.NoColor
	}
}

// Printer writes results in one format.
type Printer struct {
	out       io.Writer
	format    Format
	useColors bool
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, format Format, useColors bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if format == "" {
		format = FormatTable
	}
	return &Printer{out: out, format: format, useColors: useColors}
}

// Format returns the printer's output format.
func (p *Printer) Format() Format { return p.format }

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// IdeaList is the JSON shape of an ideas listing.
type IdeaList struct {
	Items     []vic.Idea `json:"items"`
	Count     int        `json:"count"`
	Filters   string     `json:"filters"`
	Exhausted bool       `json:"exhausted"`
}

// Ideas writes an ideas listing.
func (p *Printer) Ideas(list IdeaList) error {
	if list.Items == nil {
		list.Items = []vic.Idea{}
	}
	list.Count = len(list.Items)
	if p.format == FormatJSON {
		return p.JSON(list)
	}

	if len(list.Items) == 0 {
		_, err := fmt.Fprintln(p.out, "No investment ideas found matching your criteria.")
		return err
	}

	t := NewTable(p.out, []string{"ID", "Company", "Author", "Posted", "Direction", "Winner"})
	for _, idea := range list.Items {
		winner := ""
		if idea.IsContestWinner {
			winner = p.paint(color.FgYellow, "Winner")
		}
		t.AddRow(idea.ID, idea.CompanyID, idea.UserID, idea.Date.Short(), p.direction(idea), winner)
	}
	if err := t.Render(); err != nil {
		return err
	}

	footer := fmt.Sprintf("%d ideas", list.Count)
	if list.Exhausted {
		footer += ", no more to load"
	}
	_, err := fmt.Fprintln(p.out, p.paint(color.Faint, footer))
	return err
}

// IdeaDetail is the JSON shape of one idea with formatted performance.
type IdeaDetail struct {
	Idea        *vic.IdeaDetail `json:"idea"`
	Performance []perf.Row      `json:"performance,omitempty"`
}

// Idea writes one idea: header, sections and the performance table.
func (p *Printer) Idea(d *vic.IdeaDetail) error {
	rows := perf.Rows(d.Performance, d.IsShort)
	if p.format == FormatJSON {
		return p.JSON(IdeaDetail{Idea: d, Performance: rows})
	}

	w := p.out
	fmt.Fprintln(w, p.paint(color.Bold, d.DisplayName()))
	fmt.Fprintf(w, "%s  by %s  posted %s\n", p.direction(d.Idea), d.AuthorName(), d.Date.Long())
	if d.IsContestWinner {
		fmt.Fprintln(w, p.paint(color.FgYellow, "Contest Winner"))
	}
	if d.Link != "" {
		fmt.Fprintf(w, "View original idea on ValueInvestorsClub: %s\n", d.Link)
	}

	p.section("Investment Thesis")
	if d.Description != nil && strings.TrimSpace(d.Description.Description) != "" {
		fmt.Fprintln(w, strings.TrimSpace(d.Description.Description))
	} else {
		fmt.Fprintln(w, p.paint(color.Faint, "No description available"))
	}

	if d.Catalysts != nil && strings.TrimSpace(d.Catalysts.Catalysts) != "" {
		p.section("Catalysts")
		fmt.Fprintln(w, strings.TrimSpace(d.Catalysts.Catalysts))
	}

	p.section("Performance")
	if !d.Performance.HasAny() {
		_, err := fmt.Fprintln(w, p.paint(color.Faint, "No performance data available"))
		return err
	}
	t := NewTable(w, []string{"Period", "Return"})
	for _, row := range rows {
		t.AddRow(row.Label, p.Value(row.Value))
	}
	return t.Render()
}

// Companies writes a company directory page.
func (p *Printer) Companies(items []vic.Company) error {
	if items == nil {
		items = []vic.Company{}
	}
	if p.format == FormatJSON {
		return p.JSON(map[string]any{"items": items, "count": len(items)})
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(p.out, "No companies found.")
		return err
	}
	t := NewTable(p.out, []string{"Ticker", "Company"})
	for _, c := range items {
		t.AddRow(c.Ticker, c.CompanyName)
	}
	return t.Render()
}

// Users writes a member directory page.
func (p *Printer) Users(items []vic.User) error {
	if items == nil {
		items = []vic.User{}
	}
	if p.format == FormatJSON {
		return p.JSON(map[string]any{"items": items, "count": len(items)})
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(p.out, "No users found.")
		return err
	}
	t := NewTable(p.out, []string{"Username", "Profile"})
	for _, u := range items {
		t.AddRow(u.Username, u.UserLink)
	}
	return t.Render()
}

// Health writes the backend health status.
func (p *Printer) Health(status, backend string) error {
	if p.format == FormatJSON {
		return p.JSON(map[string]string{"status": status, "backend": backend})
	}
	_, err := fmt.Fprintf(p.out, "%s %s (%s)\n", p.paint(color.FgGreen, "●"), status, backend)
	return err
}

// Value renders a formatted return, "N/A" when missing.
func (p *Printer) Value(v perf.Value) string {
	switch v.Polarity {
	case perf.Positive:
		return p.paint(color.FgGreen, v.Display)
	case perf.Negative:
		return p.paint(color.FgRed, v.Display)
	default:
		return p.paint(color.Faint, "N/A")
	}
}

// ErrorLine formats err as "[kind] message".
func ErrorLine(err error) string {
	vErr := errors.As(err)
	if vErr == nil {
		return ""
	}
	return fmt.Sprintf("[%s] %s", vErr.Kind, vErr.Message)
}

func (p *Printer) direction(i vic.Idea) string {
	if i.IsShort {
		return p.paint(color.FgRed, i.Direction())
	}
	return p.paint(color.FgGreen, i.Direction())
}

func (p *Printer) section(title string) {
	fmt.Fprintf(p.out, "\n%s\n%s\n", p.paint(color.Bold, title), strings.Repeat("-", len(title)))
}

func (p *Printer) paint(attr color.Attribute, s string) string {
	if !p.useColors {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}
