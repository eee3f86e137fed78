package notice

import (
	"sort"
	"strings"
	"time"

	"github.com/campuserp/erp/core"
)

// QueryFilter is applied with AND between the set fields.
type QueryFilter struct {
	Category string // case-insensitive exact match
	Search   string // case-insensitive substring of Title or Body

	// inclusive range on PublishedAt
	From time.Time
	To   time.Time
	// ToDateOnly makes To cover its whole day.
	ToDateOnly bool

	IncludeExpired bool
	// Roles of the viewer; nil skips the audience check.
	Roles []string
	// Now is the reference time for expiry; zero uses the current time.
	Now time.Time
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// SetRange parses the from & to bounds: either a date (YYYY-MM-DD) or an RFC 3339 timestamp.
// Empty bounds are left open.
func (qf *QueryFilter) SetRange(from, to string) error {
	if from = strings.TrimSpace(from); from != "" {
		t, _, err := parseBound(from)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "from", Error: err.Error()})
		}
		qf.From = t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, dateOnly, err := parseBound(to)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "to", Error: err.Error()})
		}
		qf.To, qf.ToDateOnly = t, dateOnly
	}
	if !qf.From.IsZero() && !qf.To.IsZero() && qf.upperBound().Before(qf.From) {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: "to must not be before from"})
	}
	return nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(core.DateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}

// upperBound is the last instant covered by To.
func (qf *QueryFilter) upperBound() time.Time {
	if qf.ToDateOnly {
		return qf.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return qf.To
}

func (qf *QueryFilter) Matches(n Notice, now time.Time) bool {
	if qf.Category != "" && !strings.EqualFold(n.Category, qf.Category) {
		return false
	}
	if !qf.From.IsZero() && n.PublishedAt.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && n.PublishedAt.After(qf.upperBound()) {
		return false
	}
	if qf.Search != "" &&
		!strings.Contains(strings.ToLower(n.Title), qf.Search) &&
		!strings.Contains(strings.ToLower(n.Body), qf.Search) {
		return false
	}
	if !qf.IncludeExpired && n.Expired(now) {
		return false
	}
	if qf.Roles != nil && !n.VisibleTo(qf.Roles) {
		return false
	}
	return true
}

// Filter returns the notices matching qf, newest first. notices is left untouched.
func Filter(notices []Notice, qf QueryFilter) []Notice {
	qf.Clean()
	now := qf.Now
	if now.IsZero() {
		now = time.Now()
	}

	res := make([]Notice, 0, len(notices))
	for _, n := range notices {
		if qf.Matches(n, now) {
			res = append(res, n)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].PublishedAt.After(res[j].PublishedAt) })
	return res
}
