package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

type Student struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	EnrollmentNo  string    `json:"enrollment_no"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	CourseID      string    `json:"course_id"`
	Semester      int       `json:"semester"`
	Batch         string    `json:"batch"`
	SessionID     string    `json:"session_id"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	Address       string    `json:"address"`
	DateOfBirth   core.Date `json:"date_of_birth"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewStudent contains the information needed to enroll a Student, or to replace their record.
type NewStudent struct {
	Name          string    `json:"name" validate:"required,max=200"`
	Email         string    `json:"email" validate:"required,email"`
	Phone         string    `json:"phone" validate:"omitempty,phone"`
	CourseID      string    `json:"course_id" validate:"required"`
	Semester      int       `json:"semester" validate:"min=1,max=12"`
	Batch         string    `json:"batch" validate:"max=100"`
	SessionID     string    `json:"session_id" validate:"required"`
	GuardianName  string    `json:"guardian_name" validate:"max=200"`
	GuardianPhone string    `json:"guardian_phone" validate:"omitempty,phone"`
	Address       string    `json:"address" validate:"max=500"`
	DateOfBirth   core.Date `json:"date_of_birth"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Batch = core.CleanString(ns.Batch)
	ns.SessionID = core.CleanString(ns.SessionID)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianPhone = core.CleanString(ns.GuardianPhone)
	ns.Address = core.CleanString(ns.Address)
}

// Validate checks ns; orig is the Student being replaced, if any.
func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service, orig ...Student) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	var excludedID string
	if len(orig) > 0 {
		excludedID = orig[0].ID
	}
	return svc.CheckEmailUniqueness(ctx, ns.Email, excludedID)
}

// UpdateProfile holds what a Student may change on their own record.
type UpdateProfile struct {
	Phone         *string `json:"phone" validate:"omitempty,phone"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	GuardianName  *string `json:"guardian_name" validate:"omitempty,max=200"`
	GuardianPhone *string `json:"guardian_phone" validate:"omitempty,phone"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	for _, fld := range []*string{up.Phone, up.Address, up.GuardianName, up.GuardianPhone} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return validate.Struct(up)
}

type QueryFilter struct {
	Search    string // name, email or enrollment number
	CourseID  string
	Semester  int
	SessionID string
	Batch     string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.SessionID = core.CleanString(qf.SessionID)
	qf.Batch = core.CleanString(qf.Batch)
}

var OrderingColumns = []string{"enrollment_no", "name", "semester", "created_at"}

type (
	// ImportRow is a Student read from a spreadsheet; CourseCode is resolved to a course ID.
	ImportRow struct {
		Row        int
		CourseCode string
		Student    NewStudent
	}

	RowError struct {
		Row    int               `json:"row"`
		Error  string            `json:"error,omitempty"`
		Fields map[string]string `json:"fields,omitempty"`
	}

	ImportResult struct {
		Created []Student  `json:"created"`
		Errors  []RowError `json:"errors"`
	}
)
