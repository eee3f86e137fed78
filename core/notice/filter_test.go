package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

var notices = []Notice{
	{ID: "1", Title: "Exam schedule", Body: "Mid-term exams start Monday", Category: "exam", PublishedAt: ts("2024-03-01T09:00:00Z")},
	{ID: "2", Title: "Holiday", Body: "College closed for Holi", Category: "Holiday", PublishedAt: ts("2024-03-10T23:59:00Z")},
	{ID: "3", Title: "Fee deadline", Body: "Pay the EXAM fee before the 20th", Category: "fee", Audience: []string{"student:"}, PublishedAt: ts("2024-03-05T12:00:00Z")},
	{ID: "4", Title: "Staff meeting", Body: "Agenda attached", Category: "general", Audience: []string{"staff:"}, PublishedAt: ts("2024-03-07T08:00:00Z")},
	{ID: "5", Title: "Old circular", Body: "Expired", Category: "general", PublishedAt: ts("2024-02-01T08:00:00Z"), ExpiresAt: ts("2024-02-15T00:00:00Z")},
	{ID: "6", Title: "Second exam notice", Body: "Room allotment", Category: "exam", PublishedAt: ts("2024-03-01T09:00:00Z")},
}

func ids(ns []Notice) []string {
	res := make([]string, 0, len(ns))
	for _, n := range ns {
		res = append(res, n.ID)
	}
	return res
}

func TestFilter(t *testing.T) {
	now := ts("2024-03-15T00:00:00Z")

	dateRange := func(from, to string) QueryFilter {
		qf := QueryFilter{Now: now}
		require.NoError(t, qf.SetRange(from, to))
		return qf
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all, newest first", QueryFilter{Now: now}, []string{"2", "4", "3", "1", "6"}},
		{"category is case-insensitive", QueryFilter{Now: now, Category: "HOLIDAY"}, []string{"2"}},
		{"category exact", QueryFilter{Now: now, Category: "exa"}, []string{}},
		{"search title or body", QueryFilter{Now: now, Search: "exam"}, []string{"3", "1", "6"}},
		{"date-only to covers the whole day", dateRange("2024-03-05", "2024-03-10"), []string{"2", "4", "3"}},
		{"timestamp to is exact", dateRange("", "2024-03-10T12:00:00Z"), []string{"4", "3", "1", "6"}},
		{"from is inclusive", dateRange("2024-03-07T08:00:00Z", ""), []string{"2", "4"}},
		{"expired included", QueryFilter{Now: now, IncludeExpired: true, Category: "general"}, []string{"4", "5"}},
		{"student audience", QueryFilter{Now: now, Roles: []string{"student:"}}, []string{"2", "3", "1", "6"}},
		{"staff:accounts sees staff:", QueryFilter{Now: now, Roles: []string{"staff:accounts"}}, []string{"2", "4", "1", "6"}},
		{"combined", QueryFilter{Now: now, Search: "exam", Category: "exam", Roles: []string{"academic:"}}, []string{"1", "6"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(notices, tc.filter)))
		})
	}
}

func TestFilterLeavesInputUntouched(t *testing.T) {
	before := ids(notices)
	Filter(notices, QueryFilter{Now: ts("2024-03-15T00:00:00Z")})
	assert.Equal(t, before, ids(notices))
}

func TestSetRange(t *testing.T) {
	var qf QueryFilter
	assert.Error(t, qf.SetRange("yesterday", ""))
	assert.Error(t, qf.SetRange("2024-03-10", "2024-03-01"))

	qf = QueryFilter{}
	require.NoError(t, qf.SetRange("2024-03-10", "2024-03-10"))
	assert.True(t, qf.ToDateOnly)
	assert.True(t, qf.Matches(Notice{PublishedAt: ts("2024-03-10T23:59:59Z")}, time.Now()))
	assert.False(t, qf.Matches(Notice{PublishedAt: ts("2024-03-11T00:00:00Z")}, time.Now()))
}

func TestVisibleTo(t *testing.T) {
	n := Notice{Audience: []string{"staff:", "academic:"}}
	assert.True(t, n.VisibleTo([]string{"staff:accounts"}))
	assert.True(t, n.VisibleTo([]string{"student:", "academic:"}))
	assert.False(t, n.VisibleTo([]string{"student:"}))
	assert.False(t, n.VisibleTo(nil))
	assert.True(t, Notice{}.VisibleTo(nil))
}
