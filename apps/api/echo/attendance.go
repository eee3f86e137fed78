package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/user"
	docsvc "github.com/campuserp/erp/services/documents"
)

func (s *server) registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	mws := append(authed[:len(authed):len(authed)], rolesMiddleware(user.RoleAdmin, user.RoleAcademic, user.RoleStaff))
	ag := g.Group("/attendance", mws...)

	ag.GET("", s.queryAttendance)
	ag.POST("", s.markAttendance)
	ag.GET("/summary", s.attendanceSummary)
	ag.GET("/export.xlsx", s.exportAttendance)
	ag.DELETE("/:id", s.destroyAttendance)
}

func attendanceFilter(ctx echo.Context) (attendance.QueryFilter, []core.DBOrdering, error) {
	qp := newQueryParams(ctx)
	filter := attendance.QueryFilter{
		StudentID:   qp.String("student_id"),
		CourseID:    qp.String("course_id"),
		Semester:    qp.Int("semester"),
		SubjectCode: qp.String("subject_code"),
		Status:      qp.String("status"),
		From:        qp.Date("from"),
		To:          qp.Date("to"),
	}
	ordering := qp.Ordering()
	if err := qp.Err(); err != nil {
		return filter, nil, err
	}
	filter.Clean()
	return filter, ordering, nil
}

func (s *server) queryAttendance(ctx echo.Context) error {
	filter, ordering, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	records, err := s.AttendanceSvc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *server) markAttendance(ctx echo.Context) error {
	var data attendance.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	records, err := s.AttendanceSvc.Mark(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *server) attendanceSummary(ctx echo.Context) error {
	filter, ordering, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	sums, err := s.AttendanceSvc.Summary(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	if sums == nil {
		sums = []attendance.SubjectSummary{}
	}
	return ctx.JSON(http.StatusOK, sums)
}

func (s *server) exportAttendance(ctx echo.Context) error {
	filter, ordering, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	records, err := s.AttendanceSvc.Query(reqCtx, filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	sums, err := s.AttendanceSvc.Summary(reqCtx, filter, nil)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}

	names := make(map[string]string)
	for _, r := range records {
		if _, ok := names[r.StudentID]; ok {
			continue
		}
		st, err := s.StudentSvc.GetByID(reqCtx, r.StudentID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding student by ID")
		}
		names[r.StudentID] = st.Name
	}

	var buf bytes.Buffer
	if err := docsvc.WriteAttendance(&buf, records, sums, names); err != nil {
		return errors.Wrap(err, "writing attendance")
	}
	return attachment(ctx, "attendance.xlsx", docsvc.XLSXContentType, buf.Bytes())
}

func (s *server) destroyAttendance(ctx echo.Context) error {
	if err := s.AttendanceSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
