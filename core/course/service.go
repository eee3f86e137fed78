package course

import (
	"context"
	"errors"
	"time"

	"github.com/campuserp/erp/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrSubjectNotFound = errors.New("subject not found in the course semester")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when a Course other than excludedID has this code.
		CheckCodeUniqueness(ctx context.Context, code, excludedID string) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code, excludedID string) error
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		Update(ctx context.Context, c Course, nc NewCourse) (Course, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code, excludedID string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedID); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Code:          nc.Code,
		Name:          nc.Name,
		Department:    nc.Department,
		DurationYears: nc.DurationYears,
		Semesters:     semestersOrEmpty(nc.Semesters),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourseByCode(ctx, core.CleanString(code))
}

func (svc *service) Update(ctx context.Context, c Course, nc NewCourse) (Course, error) {
	c.Code = nc.Code
	c.Name = nc.Name
	c.Department = nc.Department
	c.DurationYears = nc.DurationYears
	c.Semesters = semestersOrEmpty(nc.Semesters)
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func semestersOrEmpty(sems []Semester) []Semester {
	if sems == nil {
		return []Semester{}
	}
	for i := range sems {
		if sems[i].Subjects == nil {
			sems[i].Subjects = []Subject{}
		}
	}
	return sems
}
