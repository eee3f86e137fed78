package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// Record is the attendance of a student for a subject on a day.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	CourseID    string    `json:"course_id"`
	Semester    int       `json:"semester"`
	SubjectCode string    `json:"subject_code"`
	Date        core.Date `json:"date"`
	Status      string    `json:"status"`
	MarkedBy    string    `json:"marked_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attended reports whether the student was in class (present or late).
func (r Record) Attended() bool {
	return r.Status == StatusPresent || r.Status == StatusLate
}

type (
	// MarkAttendance marks the students of a class.
	MarkAttendance struct {
		CourseID    string    `json:"course_id" validate:"required"`
		Semester    int       `json:"semester" validate:"min=1,max=12"`
		SubjectCode string    `json:"subject_code" validate:"required"`
		Date        core.Date `json:"date"`
		Entries     []Entry   `json:"entries" validate:"required,min=1,dive"`
	}

	Entry struct {
		StudentID string `json:"student_id" validate:"required"`
		Status    string `json:"status" validate:"required,attstatus"`
	}
)

func (ma *MarkAttendance) Clean() {
	ma.CourseID = core.CleanString(ma.CourseID)
	ma.SubjectCode = core.CleanString(ma.SubjectCode)
	for i := range ma.Entries {
		ma.Entries[i].StudentID = core.CleanString(ma.Entries[i].StudentID)
		ma.Entries[i].Status = core.CleanString(ma.Entries[i].Status, true /* lower */)
	}
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.Clean()
	return validate.Struct(ma)
}

// QueryFilter is applied with AND between the set fields.
type QueryFilter struct {
	StudentID   string
	CourseID    string
	Semester    int
	SubjectCode string
	Status      string
	From        core.Date // inclusive
	To          core.Date // inclusive
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.SubjectCode = core.CleanString(qf.SubjectCode)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf QueryFilter) Matches(r Record) bool {
	switch {
	case qf.StudentID != "" && r.StudentID != qf.StudentID:
		return false
	case qf.CourseID != "" && r.CourseID != qf.CourseID:
		return false
	case qf.Semester > 0 && r.Semester != qf.Semester:
		return false
	case qf.SubjectCode != "" && core.CompareStrings(r.SubjectCode, qf.SubjectCode) != 0:
		return false
	case qf.Status != "" && r.Status != qf.Status:
		return false
	case !qf.From.IsZero() && r.Date.Before(qf.From):
		return false
	case !qf.To.IsZero() && r.Date.After(qf.To):
		return false
	}
	return true
}
