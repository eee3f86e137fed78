package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

const contextStudentKey = "student"

var errNoStudentRecord = echo.NewHTTPError(http.StatusNotFound, "no student record for this account")

func (s *server) registerPortalAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	mws := append(authed[:len(authed):len(authed)], rolesMiddleware(user.RoleStudent), s.studentMiddleware())
	pg := g.Group("/student", mws...)

	pg.GET("/profile", s.studentProfile)
	pg.PUT("/profile", s.updateStudentProfile)
	pg.GET("/fees", s.studentFees)
	pg.GET("/receipts", s.studentReceipts)
	pg.GET("/attendance", s.studentAttendance)
}

// studentMiddleware loads the Student record of the authenticated user.
func (s *server) studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			st, err := s.StudentSvc.GetByUserID(ctx.Request().Context(), usr.ID)
			if err != nil {
				if core.IsNotFound(err) {
					return errNoStudentRecord
				}
				return errors.Wrap(err, "finding student by user ID")
			}
			ctx.Set(contextStudentKey, st)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (student.Student, error) {
	if st, ok := ctx.Get(contextStudentKey).(student.Student); ok {
		return st, nil
	}
	return student.Student{}, errNoStudentRecord
}

func (s *server) studentProfile(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) updateStudentProfile(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	st, err = s.StudentSvc.UpdateProfile(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "updating student profile")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) studentFees(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return s.writeFeeSummaries(ctx, st, ctx.QueryParam("structure_id"))
}

func (s *server) studentReceipts(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	receipts, err := s.FeeSvc.QueryReceipts(ctx.Request().Context(), fee.ReceiptFilter{StudentID: st.ID})
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if receipts == nil {
		receipts = []fee.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}

type StudentAttendanceResponse struct {
	Records   []attendance.Record         `json:"records"`
	Summaries []attendance.SubjectSummary `json:"summaries"`
}

func (s *server) studentAttendance(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	filter, ordering, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	filter.StudentID = st.ID

	reqCtx := ctx.Request().Context()
	records, err := s.AttendanceSvc.Query(reqCtx, filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	sums, err := s.AttendanceSvc.Summary(reqCtx, filter, nil)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}

	resp := StudentAttendanceResponse{Records: records, Summaries: sums}
	if resp.Records == nil {
		resp.Records = []attendance.Record{}
	}
	if resp.Summaries == nil {
		resp.Summaries = []attendance.SubjectSummary{}
	}
	return ctx.JSON(http.StatusOK, resp)
}
