package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
)

func day(d int) core.Date { return core.NewDate(2024, time.March, d) }

func records() []Record {
	return []Record{
		{ID: "1", StudentID: "s2", SubjectCode: "CS101", Date: day(2), Status: StatusPresent},
		{ID: "2", StudentID: "s1", SubjectCode: "cs102", Date: day(1), Status: StatusAbsent},
		{ID: "3", StudentID: "s1", SubjectCode: "CS101", Date: day(2), Status: StatusLate},
		{ID: "4", StudentID: "s3", SubjectCode: "CS101", Date: day(1), Status: StatusPresent},
		{ID: "5", StudentID: "s2", SubjectCode: "CS102", Date: day(3), Status: StatusExcused},
	}
}

func recordIDs(rs []Record) []string {
	res := make([]string, 0, len(rs))
	for _, r := range rs {
		res = append(res, r.ID)
	}
	return res
}

func TestSort(t *testing.T) {
	tests := []struct {
		ordering string
		want     []string
	}{
		{"", []string{"1", "2", "3", "4", "5"}},
		{"date", []string{"2", "4", "1", "3", "5"}},
		{"-date", []string{"5", "1", "3", "2", "4"}},
		{"student_id", []string{"2", "3", "1", "5", "4"}},
		{"subject_code,-student_id", []string{"4", "1", "3", "5", "2"}},
		{"status", []string{"2", "5", "3", "1", "4"}},
		{"-status,date", []string{"4", "1", "3", "5", "2"}},
	}

	for _, tc := range tests {
		t.Run(tc.ordering, func(t *testing.T) {
			rs := records()
			require.NoError(t, Sort(rs, core.ParseOrdering(tc.ordering)))
			assert.Equal(t, tc.want, recordIDs(rs))
		})
	}
}

func TestSortUnknownColumn(t *testing.T) {
	rs := records()
	err := Sort(rs, core.ParseOrdering("date,-marked_by"))

	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, core.OrderingParam, vErr.Fields[0].Field)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, recordIDs(rs))
}

func TestSummarize(t *testing.T) {
	rs := append(records(),
		Record{StudentID: "s1", SubjectCode: "CS101", Date: day(3), Status: StatusPresent},
		Record{StudentID: "s1", SubjectCode: "CS101", Date: day(4), Status: StatusAbsent},
	)
	sums := Summarize(rs)

	require.Len(t, sums, 5)
	s1 := sums[0]
	assert.Equal(t, "s1", s1.StudentID)
	assert.Equal(t, "CS101", s1.SubjectCode)
	assert.Equal(t, 3, s1.Total)
	assert.Equal(t, 2, s1.Attended)
	assert.Equal(t, 1, s1.Present)
	assert.Equal(t, 1, s1.Late)
	assert.Equal(t, 1, s1.Absent)
	assert.Equal(t, 66.67, s1.Percentage)

	require.NoError(t, SortSummaries(sums, core.ParseOrdering("-percentage,subject_code")))
	assert.Equal(t, 100.0, sums[0].Percentage)
	assert.Equal(t, 0.0, sums[len(sums)-1].Percentage)

	assert.Error(t, SortSummaries(sums, core.ParseOrdering("status")))
}
