package vic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Idea is a single published investment thesis as returned by GET /ideas/.
// Ideas are immutable once fetched; ID is the identity key.
type Idea struct {
	// ID uniquely identifies the idea on the backend
	ID string `json:"id"`

	// Link is the external URL of the original write-up (may be empty)
	Link string `json:"link"`

	// CompanyID references a Company by ticker
	CompanyID string `json:"company_id"`

	// UserID references the authoring User
	UserID string `json:"user_id"`

	// Date is the publication date
	Date Date `json:"date"`

	// IsShort is the direction flag: true for a short position, false for long
	IsShort bool `json:"is_short"`

	// IsContestWinner marks ideas that won the weekly contest
	IsContestWinner bool `json:"is_contest_winner"`
}

// IdeaID returns the identity key of an idea.
func IdeaID(i Idea) string { return i.ID }

// Direction returns "Short" or "Long".
func (i Idea) Direction() string {
	if i.IsShort {
		return "Short"
	}
	return "Long"
}

// IdeaDetail is an Idea plus whatever related records the backend populated.
// A nil section means "not available", not an error.
type IdeaDetail struct {
	Idea
	Company     *Company     `json:"company,omitempty"`
	User        *User        `json:"user,omitempty"`
	Description *Description `json:"description,omitempty"`
	Catalysts   *Catalysts   `json:"catalysts,omitempty"`
	Performance *Performance `json:"performance,omitempty"`
}

// DisplayName returns "Company Name (TICKER)" when the company is known,
// otherwise the raw company reference.
func (d *IdeaDetail) DisplayName() string {
	if d.Company != nil && d.Company.CompanyName != "" {
		return fmt.Sprintf("%s (%s)", d.Company.CompanyName, d.Company.Ticker)
	}
	return d.CompanyID
}

// AuthorName returns the username when known, otherwise the raw user reference.
func (d *IdeaDetail) AuthorName() string {
	if d.User != nil && d.User.Username != "" {
		return d.User.Username
	}
	return d.UserID
}

// Description is the free-text thesis of an idea.
type Description struct {
	Description string `json:"description"`
}

// Catalysts is the free-text list of catalysts of an idea.
type Catalysts struct {
	Catalysts string `json:"catalysts"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}

// dateLayouts are the timestamp shapes the backend has been seen to emit.
// Naive datetimes (no zone) are interpreted as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date is a publication timestamp tolerant of zone-less ISO strings.
type Date struct {
	time.Time
}

// ParseDate parses any of the accepted layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date: %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

// Short formats as "Jan 2, 2006" (card view).
func (d Date) Short() string {
	if d.IsZero() {
		return "unknown date"
	}
	return d.Format("Jan 2, 2006")
}

// Long formats as "January 2, 2006" (detail view).
func (d Date) Long() string {
	if d.IsZero() {
		return "unknown date"
	}
	return d.Format("January 2, 2006")
}
