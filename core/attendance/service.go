package attendance

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

var ErrNotFound = core.NewNotFoundError("attendance record")

type (
	Repository interface {
		// UpsertRecords saves records, replacing those with the same student, subject & date.
		UpsertRecords(ctx context.Context, records []Record) ([]Record, error)
		// QueryRecords returns the matching records ordered by date then student.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	Service interface {
		// Mark records the attendance of a class, replacing what was marked before for the same day.
		Mark(ctx context.Context, ma MarkAttendance, usr user.User) ([]Record, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		Summary(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SubjectSummary, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo       Repository
		courseSvc  course.Service
		studentSvc student.Service
		events     core.EventPublisher
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, studentSvc student.Service, events core.EventPublisher, logger core.Logger) Service {
	return &service{repo: repo, courseSvc: courseSvc, studentSvc: studentSvc, events: events, logger: logger}
}

func (svc *service) checkClass(ctx context.Context, ma *MarkAttendance) error {
	crs, err := svc.courseSvc.GetByID(ctx, ma.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return pkgerrors.Wrap(err, "finding course")
	}
	subj, ok := crs.Subject(ma.Semester, ma.SubjectCode)
	if !ok {
		return core.NewValidationError(course.ErrSubjectNotFound, core.FieldError{Field: "subject_code", Error: course.ErrSubjectNotFound.Error()})
	}
	ma.SubjectCode = subj.Code

	var fldErrs []core.FieldError
	for i, e := range ma.Entries {
		s, err := svc.studentSvc.GetByID(ctx, e.StudentID)
		switch {
		case core.IsNotFound(err):
			fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("entries[%d].student_id", i), Error: "student not found"})
		case err != nil:
			return pkgerrors.Wrap(err, "finding student")
		case s.CourseID != crs.ID:
			fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("entries[%d].student_id", i), Error: "student is not enrolled in " + crs.Code})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func (svc *service) Mark(ctx context.Context, ma MarkAttendance, usr user.User) ([]Record, error) {
	if err := svc.checkClass(ctx, &ma); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]Record, 0, len(ma.Entries))
	for _, e := range ma.Entries {
		records = append(records, Record{
			StudentID:   e.StudentID,
			CourseID:    ma.CourseID,
			Semester:    ma.Semester,
			SubjectCode: ma.SubjectCode,
			Date:        ma.Date,
			Status:      e.Status,
			MarkedBy:    usr.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	records, err := svc.repo.UpsertRecords(ctx, records)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "saving attendance")
	}

	if svc.events != nil {
		ev := core.NewEvent(core.EventAttendanceMarked, ma.CourseID, map[string]interface{}{
			"course_id":    ma.CourseID,
			"semester":     ma.Semester,
			"subject_code": ma.SubjectCode,
			"date":         ma.Date.String(),
			"count":        len(records),
		})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	return records, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	if err := core.CheckOrdering(ordering, OrderingColumns...); err != nil {
		return nil, err
	}
	filter.Clean()
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := Sort(records, ordering); err != nil {
		return nil, err
	}
	return records, nil
}

func (svc *service) Summary(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SubjectSummary, error) {
	if err := core.CheckOrdering(ordering, SummaryOrderingColumns...); err != nil {
		return nil, err
	}
	filter.Clean()
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	sums := Summarize(records)
	if err := SortSummaries(sums, ordering); err != nil {
		return nil, err
	}
	return sums, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}
