package attendance

import (
	"sort"

	"github.com/campuserp/erp/core"
)

// SubjectSummary totals the attendance of a student in a subject.
type SubjectSummary struct {
	StudentID   string  `json:"student_id"`
	SubjectCode string  `json:"subject_code"`
	Total       int     `json:"total"`
	Attended    int     `json:"attended"` // present + late
	Present     int     `json:"present"`
	Late        int     `json:"late"`
	Absent      int     `json:"absent"`
	Excused     int     `json:"excused"`
	Percentage  float64 `json:"percentage"` // attended / total
}

// Summarize groups records by student & subject, ordered by student then subject.
func Summarize(records []Record) []SubjectSummary {
	type key struct{ student, subject string }
	byKey := make(map[key]*SubjectSummary)
	for _, r := range records {
		k := key{r.StudentID, r.SubjectCode}
		sum, ok := byKey[k]
		if !ok {
			sum = &SubjectSummary{StudentID: r.StudentID, SubjectCode: r.SubjectCode}
			byKey[k] = sum
		}
		sum.Total++
		switch r.Status {
		case StatusPresent:
			sum.Present++
		case StatusLate:
			sum.Late++
		case StatusAbsent:
			sum.Absent++
		case StatusExcused:
			sum.Excused++
		}
	}

	sums := make([]SubjectSummary, 0, len(byKey))
	for _, sum := range byKey {
		sum.Attended = sum.Present + sum.Late
		if sum.Total > 0 {
			sum.Percentage = core.RoundAmount(float64(sum.Attended) * 100 / float64(sum.Total))
		}
		sums = append(sums, *sum)
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].StudentID != sums[j].StudentID {
			return sums[i].StudentID < sums[j].StudentID
		}
		return sums[i].SubjectCode < sums[j].SubjectCode
	})
	return sums
}
