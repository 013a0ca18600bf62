package perf

import (
	"math"

	"github.com/hpungsan/vicdash/internal/vic"
)

// horizonLabels maps timeline codes to chart labels.
var horizonLabels = map[string]string{
	"1W": "1 Week",
	"2W": "2 Weeks",
	"1M": "1 Month",
	"3M": "3 Months",
	"6M": "6 Months",
	"1Y": "1 Year",
	"2Y": "2 Years",
	"3Y": "3 Years",
	"5Y": "5 Years",
}

// HorizonLabel returns the human label for a horizon code.
// Unrecognized codes pass through unchanged.
func HorizonLabel(code string) string {
	if label, ok := horizonLabels[code]; ok {
		return label
	}
	return code
}

// Point is one bar of a performance chart.
type Point struct {
	Label string `json:"label"`
	Value

	// Width is |Adjusted| relative to the largest bar, in [0, 1]
	Width float64 `json:"width"`
}

// Series builds chart points. The backend timeline is preferred when present;
// otherwise every non-null horizon from 1 week on is used. Each value goes
// through the same per-value transform as Format.
func Series(p *vic.Performance, isShort bool) []Point {
	if p == nil {
		return nil
	}

	var points []Point
	if len(p.TimelineLabels) > 0 && len(p.TimelineValues) > 0 {
		for i, code := range p.TimelineLabels {
			if i >= len(p.TimelineValues) {
				break
			}
			raw := p.TimelineValues[i]
			points = append(points, Point{Label: HorizonLabel(code), Value: Format(&raw, isShort)})
		}
	} else {
		for _, h := range vic.Horizons {
			if h.Period == "" {
				continue
			}
			if raw := h.Value(p); raw != nil {
				points = append(points, Point{Label: h.Label, Value: Format(raw, isShort)})
			}
		}
	}

	scale(points)
	return points
}

// scale sets Width for each point against the largest magnitude.
func scale(points []Point) {
	var peak float64
	for _, pt := range points {
		peak = math.Max(peak, math.Abs(pt.Adjusted))
	}
	if peak == 0 {
		return
	}
	for i := range points {
		points[i].Width = math.Abs(points[i].Adjusted) / peak
	}
}
