// Package filters owns the ideas list query parameters: parsing them from a
// URL query string, functional updates, and serialization back to the URL.
package filters

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/vic"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 20

// Query keys. These match the backend ListParams and the address bar.
const (
	KeySkip              = "skip"
	KeyLimit             = "limit"
	KeyCompanyID         = "company_id"
	KeyUserID            = "user_id"
	KeyIsShort           = "is_short"
	KeyIsContestWinner   = "is_contest_winner"
	KeyStartDate         = "start_date"
	KeyEndDate           = "end_date"
	KeySearch            = "search"
	KeyHasPerformance    = "has_performance"
	KeyMinPerformance    = "min_performance"
	KeyMaxPerformance    = "max_performance"
	KeyPerformancePeriod = "performance_period"
	KeySortBy            = "sort_by"
	KeySortOrder         = "sort_order"
)

// Params is the typed filter record. A nil field is absent: it is neither
// sent to the backend nor written to the URL.
type Params struct {
	Skip  *int `json:"skip,omitempty"`
	Limit *int `json:"limit,omitempty"`

	CompanyID         *string  `json:"company_id,omitempty"`
	UserID            *string  `json:"user_id,omitempty"`
	IsShort           *bool    `json:"is_short,omitempty"`
	IsContestWinner   *bool    `json:"is_contest_winner,omitempty"`
	StartDate         *string  `json:"start_date,omitempty"`
	EndDate           *string  `json:"end_date,omitempty"`
	Search            *string  `json:"search,omitempty"`
	HasPerformance    *bool    `json:"has_performance,omitempty"`
	MinPerformance    *float64 `json:"min_performance,omitempty"`
	MaxPerformance    *float64 `json:"max_performance,omitempty"`
	PerformancePeriod *string  `json:"performance_period,omitempty"`
	SortBy            *string  `json:"sort_by,omitempty"`
	SortOrder         *string  `json:"sort_order,omitempty"`
}

// field binds a query key to a Params slot.
type field struct {
	key        string
	pagination bool
	get        func(p *Params) (string, bool)
	set        func(p *Params, raw string) bool // false when raw does not parse
	clear      func(p *Params)
}

var fields = []field{
	intField(KeySkip, true, func(p *Params) **int { return &p.Skip }, 0),
	intField(KeyLimit, true, func(p *Params) **int { return &p.Limit }, 1),
	stringField(KeyCompanyID, func(p *Params) **string { return &p.CompanyID }, nil),
	stringField(KeyUserID, func(p *Params) **string { return &p.UserID }, nil),
	boolField(KeyIsShort, func(p *Params) **bool { return &p.IsShort }),
	boolField(KeyIsContestWinner, func(p *Params) **bool { return &p.IsContestWinner }),
	stringField(KeyStartDate, func(p *Params) **string { return &p.StartDate }, normalizeDate),
	stringField(KeyEndDate, func(p *Params) **string { return &p.EndDate }, normalizeDate),
	stringField(KeySearch, func(p *Params) **string { return &p.Search }, nil),
	boolField(KeyHasPerformance, func(p *Params) **bool { return &p.HasPerformance }),
	floatField(KeyMinPerformance, func(p *Params) **float64 { return &p.MinPerformance }),
	floatField(KeyMaxPerformance, func(p *Params) **float64 { return &p.MaxPerformance }),
	stringField(KeyPerformancePeriod, func(p *Params) **string { return &p.PerformancePeriod }, normalizePeriod),
	stringField(KeySortBy, func(p *Params) **string { return &p.SortBy }, oneOf("date", "performance")),
	stringField(KeySortOrder, func(p *Params) **string { return &p.SortOrder }, oneOf("asc", "desc")),
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// Keys returns every recognized key in declaration order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// IsKnown reports whether key is a recognized filter key.
func IsKnown(key string) bool {
	_, ok := fieldsByKey[key]
	return ok
}

// IsPagination reports whether key is skip or limit.
func IsPagination(key string) bool {
	f, ok := fieldsByKey[key]
	return ok && f.pagination
}

// Initial parses a URL query string into Params (getInitialFilters).
// Defaults skip=0 and limit=pageSize apply when absent. Unknown keys are
// ignored. Booleans parse "true"/"false" literally; values that fail to
// parse are omitted rather than defaulted.
func Initial(query string, pageSize int) Params {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	// ParseQuery keeps every pair it could decode even when it reports an error
	values, _ := url.ParseQuery(strings.TrimPrefix(query, "?"))

	var p Params
	for _, f := range fields {
		raw := values.Get(f.key)
		if raw == "" {
			continue
		}
		f.set(&p, raw)
	}

	if p.Skip == nil {
		p.Skip = intPtr(0)
	}
	if p.Limit == nil {
		p.Limit = intPtr(pageSize)
	}
	return p
}

// Build applies values onto the defaults for pageSize. Filter keys go
// first so an explicit skip survives the reset every filter change causes.
// Unlike Initial, a value that does not parse is an invalid_request error.
// Unknown keys and empty values are ignored.
func Build(values map[string]string, pageSize int) (Params, error) {
	p := Initial("", pageSize)
	ordered := make([]string, 0, len(values))
	for _, f := range fields {
		if !f.pagination {
			ordered = append(ordered, f.key)
		}
	}
	ordered = append(ordered, KeySkip, KeyLimit)

	for _, k := range ordered {
		raw := strings.TrimSpace(values[k])
		if raw == "" {
			continue
		}
		p = p.Set(k, raw)
		if _, ok := p.Get(k); !ok {
			return Params{}, errors.NewInvalidRequest(fmt.Sprintf("invalid value for %s: %q", k, raw))
		}
	}
	return p, nil
}

// Set returns a copy of p with key set to value (setFilter).
//
// Changing any key other than skip/limit forces skip to 0. An empty value
// removes the key entirely, as does a value that fails to parse.
// Unknown keys leave the copy untouched.
func (p Params) Set(key, value string) Params {
	f, ok := fieldsByKey[key]
	if !ok {
		return p.Clone()
	}

	out := p.Clone()
	value = strings.TrimSpace(value)
	if value == "" || !f.set(&out, value) {
		f.clear(&out)
	}
	if !f.pagination {
		out.Skip = intPtr(0)
	}
	return out
}

// Clear is Set(key, "").
func (p Params) Clear(key string) Params {
	return p.Set(key, "")
}

// Get returns the serialized value of key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	f, ok := fieldsByKey[key]
	if !ok {
		return "", false
	}
	return f.get(&p)
}

// Serialize renders every present non-pagination key as a query string with
// keys in sorted order. Pagination is session-local and never written.
func (p Params) Serialize() string {
	return p.encode(false)
}

// Values returns the backend query values, pagination included.
func (p Params) Values() url.Values {
	values := url.Values{}
	for _, f := range fields {
		if v, ok := f.get(&p); ok {
			values.Set(f.key, v)
		}
	}
	return values
}

// CacheKey is the canonical serialization of every present key. Equal keys
// mean equal backend requests.
func (p Params) CacheKey() string {
	return p.encode(true)
}

// FilterKey is the canonical serialization without pagination. Two pages
// belong to the same accumulated list iff their filter keys match.
func (p Params) FilterKey() string {
	return p.encode(false)
}

func (p Params) encode(withPagination bool) string {
	keys := make([]string, 0, len(fields))
	vals := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.pagination && !withPagination {
			continue
		}
		if v, ok := f.get(&p); ok {
			keys = append(keys, f.key)
			vals[f.key] = v
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(vals[k]))
	}
	return b.String()
}

// Offset returns skip, defaulting to 0.
func (p Params) Offset() int {
	if p.Skip == nil {
		return 0
	}
	return *p.Skip
}

// PageSize returns limit, defaulting to DefaultPageSize.
func (p Params) PageSize() int {
	if p.Limit == nil || *p.Limit <= 0 {
		return DefaultPageSize
	}
	return *p.Limit
}

// NextPage returns a copy advanced by one page. Filters are untouched.
func (p Params) NextPage() Params {
	out := p.Clone()
	out.Skip = intPtr(p.Offset() + p.PageSize())
	out.Limit = intPtr(p.PageSize())
	return out
}

// FirstPage returns a copy with skip reset to 0.
func (p Params) FirstPage() Params {
	out := p.Clone()
	out.Skip = intPtr(0)
	return out
}

// IsFirstPage reports whether skip is 0.
func (p Params) IsFirstPage() bool {
	return p.Offset() == 0
}

// Clone deep-copies every pointer so updates never alias the receiver.
func (p Params) Clone() Params {
	var out Params
	for _, f := range fields {
		if v, ok := f.get(&p); ok {
			f.set(&out, v)
		}
	}
	return out
}

// Active lists the present non-pagination keys, sorted. Used for chips.
func (p Params) Active() []string {
	var keys []string
	for _, f := range fields {
		if f.pagination {
			continue
		}
		if _, ok := f.get(&p); ok {
			keys = append(keys, f.key)
		}
	}
	sort.Strings(keys)
	return keys
}

func intField(key string, pagination bool, slot func(*Params) **int, min int) field {
	return field{
		key:        key,
		pagination: pagination,
		get: func(p *Params) (string, bool) {
			v := *slot(p)
			if v == nil {
				return "", false
			}
			return strconv.Itoa(*v), true
		},
		set: func(p *Params, raw string) bool {
			n, err := strconv.Atoi(raw)
			if err != nil || n < min {
				return false
			}
			*slot(p) = &n
			return true
		},
		clear: func(p *Params) { *slot(p) = nil },
	}
}

func boolField(key string, slot func(*Params) **bool) field {
	return field{
		key: key,
		get: func(p *Params) (string, bool) {
			v := *slot(p)
			if v == nil {
				return "", false
			}
			return strconv.FormatBool(*v), true
		},
		set: func(p *Params, raw string) bool {
			var b bool
			switch raw {
			case "true":
				b = true
			case "false":
				b = false
			default:
				return false
			}
			*slot(p) = &b
			return true
		},
		clear: func(p *Params) { *slot(p) = nil },
	}
}

func floatField(key string, slot func(*Params) **float64) field {
	return field{
		key: key,
		get: func(p *Params) (string, bool) {
			v := *slot(p)
			if v == nil {
				return "", false
			}
			return strconv.FormatFloat(*v, 'f', -1, 64), true
		},
		set: func(p *Params, raw string) bool {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return false
			}
			*slot(p) = &n
			return true
		},
		clear: func(p *Params) { *slot(p) = nil },
	}
}

// stringField binds a free-form key. normalize, when set, canonicalizes the
// raw value and rejects it by returning "".
func stringField(key string, slot func(*Params) **string, normalize func(string) string) field {
	return field{
		key: key,
		get: func(p *Params) (string, bool) {
			v := *slot(p)
			if v == nil {
				return "", false
			}
			return *v, true
		},
		set: func(p *Params, raw string) bool {
			if normalize != nil {
				raw = normalize(raw)
			}
			if raw == "" {
				return false
			}
			*slot(p) = &raw
			return true
		},
		clear: func(p *Params) { *slot(p) = nil },
	}
}

func normalizeDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func normalizePeriod(s string) string {
	for _, h := range vic.PerformancePeriods() {
		if h.Period == s {
			return s
		}
	}
	return ""
}

func oneOf(allowed ...string) func(string) string {
	return func(s string) string {
		s = strings.ToLower(s)
		for _, a := range allowed {
			if s == a {
				return s
			}
		}
		return ""
	}
}

func intPtr(n int) *int { return &n }

// Ptr returns a pointer to v. Convenience for building Params literals.
func Ptr[T any](v T) *T { return &v }
