// Package perf re-expresses stored return figures from the investor's side of
// a long or short position.
package perf

import (
	"fmt"
	"math"

	"github.com/hpungsan/vicdash/internal/vic"
)

// Polarity classifies an adjusted return.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative" // also holds exact zero
	None     Polarity = "none"     // no figure computed
)

// Value is a formatted return.
type Value struct {
	// Display is e.g. "+5.0%" or "-3.2%"; empty when Polarity is None
	Display string `json:"display,omitempty"`

	// Adjusted is the sign-corrected figure; meaningless when Polarity is None
	Adjusted float64 `json:"adjusted"`

	Polarity Polarity `json:"polarity"`
}

// OK reports whether the value carries a figure.
func (v Value) OK() bool { return v.Polarity != None }

// Format maps a stored return to the investor's perspective.
//
// A stored positive figure means the price rose, which is an adverse outcome
// for a short, so the sign is inverted for shorts. Zero is not positive.
// Stored figures are already percentages and are not scaled.
func Format(raw *float64, isShort bool) Value {
	if raw == nil || math.IsNaN(*raw) {
		return Value{Polarity: None}
	}
	adjusted := *raw
	if isShort {
		adjusted = -adjusted
	}
	return FormatAdjusted(adjusted)
}

// FormatAdjusted formats a figure whose sign is already investor-relative.
func FormatAdjusted(adjusted float64) Value {
	if adjusted == 0 {
		// collapses -0 so it never renders as "-0.0%"
		adjusted = 0
	}
	v := Value{Adjusted: adjusted, Polarity: Negative}
	if adjusted > 0 {
		v.Polarity = Positive
		v.Display = fmt.Sprintf("+%.1f%%", adjusted)
		return v
	}
	display := fmt.Sprintf("%.1f%%", adjusted)
	if display == "-0.0%" {
		display = "0.0%"
	}
	v.Display = display
	return v
}

// Row is one horizon of a performance table.
type Row struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Value
}

// Rows formats every horizon of p in display order. Missing figures keep
// Polarity None so tables can render "N/A". A nil Performance yields nil.
func Rows(p *vic.Performance, isShort bool) []Row {
	if p == nil {
		return nil
	}
	rows := make([]Row, 0, len(vic.Horizons))
	for _, h := range vic.Horizons {
		rows = append(rows, Row{
			Code:  h.Code,
			Label: h.Label,
			Value: Format(h.Value(p), isShort),
		})
	}
	return rows
}

// Headline picks the longest horizon with a figure, for card badges.
func Headline(p *vic.Performance, isShort bool) (Row, bool) {
	if p == nil {
		return Row{}, false
	}
	for i := len(vic.Horizons) - 1; i >= 0; i-- {
		h := vic.Horizons[i]
		if v := h.Value(p); v != nil {
			return Row{Code: h.Code, Label: h.Label, Value: Format(v, isShort)}, true
		}
	}
	return Row{}, false
}
