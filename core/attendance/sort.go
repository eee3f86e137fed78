package attendance

import (
	"github.com/campuserp/erp/core"
)

var recordComparators = map[string]core.Comparator[Record]{
	"date":         func(a, b Record) int { return core.CompareDates(a.Date, b.Date) },
	"student_id":   func(a, b Record) int { return core.CompareStrings(a.StudentID, b.StudentID) },
	"subject_code": func(a, b Record) int { return core.CompareStrings(a.SubjectCode, b.SubjectCode) },
	"status":       func(a, b Record) int { return core.CompareStrings(a.Status, b.Status) },
}

var summaryComparators = map[string]core.Comparator[SubjectSummary]{
	"subject_code": func(a, b SubjectSummary) int { return core.CompareStrings(a.SubjectCode, b.SubjectCode) },
	"percentage":   func(a, b SubjectSummary) int { return core.CompareFloats(a.Percentage, b.Percentage) },
	"total":        func(a, b SubjectSummary) int { return core.CompareInts(a.Total, b.Total) },
	"attended":     func(a, b SubjectSummary) int { return core.CompareInts(a.Attended, b.Attended) },
}

// OrderingColumns are the columns records may be sorted by.
var OrderingColumns = []string{"date", "student_id", "subject_code", "status"}

// SummaryOrderingColumns are the columns summaries may be sorted by.
var SummaryOrderingColumns = []string{"subject_code", "percentage", "total", "attended"}

// Sort stable-sorts records in place. An unknown column is a validation error.
func Sort(records []Record, orderings []core.DBOrdering) error {
	return core.SortSlice(records, orderings, recordComparators)
}

func SortSummaries(sums []SubjectSummary, orderings []core.DBOrdering) error {
	return core.SortSlice(sums, orderings, summaryComparators)
}
