package vic

// Performance holds raw percentage returns keyed by horizon. Every field is
// independently nullable: nil means "not yet computed", never zero.
// Values are already percentages (1.5 means 1.5%) and are never rescaled.
type Performance struct {
	NextDayOpen      *float64 `json:"nextDayOpen"`
	NextDayClose     *float64 `json:"nextDayClose"`
	OneWeekClosePerf *float64 `json:"oneWeekClosePerf"`
	TwoWeekClosePerf *float64 `json:"twoWeekClosePerf"`
	OneMonthPerf     *float64 `json:"oneMonthPerf"`
	ThreeMonthPerf   *float64 `json:"threeMonthPerf"`
	SixMonthPerf     *float64 `json:"sixMonthPerf"`
	OneYearPerf      *float64 `json:"oneYearPerf"`
	TwoYearPerf      *float64 `json:"twoYearPerf"`
	ThreeYearPerf    *float64 `json:"threeYearPerf"`
	FiveYearPerf     *float64 `json:"fiveYearPerf"`

	// TimelineLabels and TimelineValues are parallel arrays for charting.
	TimelineLabels []string  `json:"timeline_labels,omitempty"`
	TimelineValues []float64 `json:"timeline_values,omitempty"`

	// PerformancePeriods maps horizon codes to values.
	PerformancePeriods map[string]float64 `json:"performance_periods,omitempty"`
}

// Horizon is one fixed time window over which a return is computed upstream.
type Horizon struct {
	// Code is the short label used by the timeline ("1W", "NDO", ...)
	Code string

	// Label is the human label ("1 Week")
	Label string

	// Period is the backend performance_period value, empty if not filterable
	Period string

	// Value extracts this horizon's figure from a Performance
	Value func(p *Performance) *float64
}

// Horizons lists every horizon in display order.
var Horizons = []Horizon{
	{Code: "NDO", Label: "Next Day Open", Value: func(p *Performance) *float64 { return p.NextDayOpen }},
	{Code: "NDC", Label: "Next Day Close", Value: func(p *Performance) *float64 { return p.NextDayClose }},
	{Code: "1W", Label: "1 Week", Period: "one_week_perf", Value: func(p *Performance) *float64 { return p.OneWeekClosePerf }},
	{Code: "2W", Label: "2 Weeks", Period: "two_week_perf", Value: func(p *Performance) *float64 { return p.TwoWeekClosePerf }},
	{Code: "1M", Label: "1 Month", Period: "one_month_perf", Value: func(p *Performance) *float64 { return p.OneMonthPerf }},
	{Code: "3M", Label: "3 Months", Period: "three_month_perf", Value: func(p *Performance) *float64 { return p.ThreeMonthPerf }},
	{Code: "6M", Label: "6 Months", Period: "six_month_perf", Value: func(p *Performance) *float64 { return p.SixMonthPerf }},
	{Code: "1Y", Label: "1 Year", Period: "one_year_perf", Value: func(p *Performance) *float64 { return p.OneYearPerf }},
	{Code: "2Y", Label: "2 Years", Period: "two_year_perf", Value: func(p *Performance) *float64 { return p.TwoYearPerf }},
	{Code: "3Y", Label: "3 Years", Period: "three_year_perf", Value: func(p *Performance) *float64 { return p.ThreeYearPerf }},
	{Code: "5Y", Label: "5 Years", Period: "five_year_perf", Value: func(p *Performance) *float64 { return p.FiveYearPerf }},
}

// PerformancePeriods returns the backend performance_period values in order.
func PerformancePeriods() []Horizon {
	out := make([]Horizon, 0, len(Horizons))
	for _, h := range Horizons {
		if h.Period != "" {
			out = append(out, h)
		}
	}
	return out
}

// HasAny reports whether at least one horizon has a value.
func (p *Performance) HasAny() bool {
	if p == nil {
		return false
	}
	for _, h := range Horizons {
		if h.Value(p) != nil {
			return true
		}
	}
	return len(p.TimelineValues) > 0
}
