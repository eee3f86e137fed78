package course

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

type (
	Course struct {
		ID            string     `json:"id"`
		Code          string     `json:"code"`
		Name          string     `json:"name"`
		Department    string     `json:"department"`
		DurationYears int        `json:"duration_years"`
		Semesters     []Semester `json:"semesters"`
		CreatedAt     time.Time  `json:"created_at"`
		UpdatedAt     time.Time  `json:"updated_at"`
	}

	Semester struct {
		Number   int       `json:"number" validate:"min=1"`
		Subjects []Subject `json:"subjects" validate:"dive"`
	}

	Subject struct {
		Code    string `json:"code" validate:"required,max=20"`
		Name    string `json:"name" validate:"required"`
		Credits int    `json:"credits" validate:"min=0,max=40"`
	}
)

// Semester returns the semester with this number.
func (c Course) Semester(number int) (Semester, bool) {
	for _, sem := range c.Semesters {
		if sem.Number == number {
			return sem, true
		}
	}
	return Semester{}, false
}

// Subject returns the subject with this code (case-insensitive) in the given semester.
func (c Course) Subject(semester int, code string) (Subject, bool) {
	sem, ok := c.Semester(semester)
	if !ok {
		return Subject{}, false
	}
	for _, sub := range sem.Subjects {
		if strings.EqualFold(sub.Code, code) {
			return sub, true
		}
	}
	return Subject{}, false
}

// NewCourse contains the information needed to create or replace a Course.
type NewCourse struct {
	Code          string     `json:"code" validate:"required,max=20,coursecode"`
	Name          string     `json:"name" validate:"required,max=200"`
	Department    string     `json:"department" validate:"max=200"`
	DurationYears int        `json:"duration_years" validate:"min=1,max=6"`
	Semesters     []Semester `json:"semesters" validate:"dive"`
}

func (nc *NewCourse) Clean() {
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Name = core.CleanString(nc.Name)
	nc.Department = core.CleanString(nc.Department)
	for i := range nc.Semesters {
		for j := range nc.Semesters[i].Subjects {
			sub := &nc.Semesters[i].Subjects[j]
			sub.Code = strings.ToUpper(core.CleanString(sub.Code))
			sub.Name = core.CleanString(sub.Name)
		}
	}
}

// Validate checks nc; orig is the Course being replaced, if any.
func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc Service, orig ...Course) error {
	nc.Clean()
	if err := validate.Struct(nc); err != nil {
		return err
	}
	var excludedID string
	if len(orig) > 0 {
		excludedID = orig[0].ID
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code, excludedID)
}

type QueryFilter struct {
	Search     string // code or name
	Department string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
}

// Matches reports whether c passes the filter.
func (qf QueryFilter) Matches(c Course) bool {
	if qf.Department != "" && !strings.EqualFold(c.Department, qf.Department) {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(c.Code), s) && !strings.Contains(strings.ToLower(c.Name), s) {
			return false
		}
	}
	return true
}
