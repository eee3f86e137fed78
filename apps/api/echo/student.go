package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	docsvc "github.com/campuserp/erp/services/documents"
)

const importFileField = "file"

func (s *server) registerStudentAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	mws := append(authed[:len(authed):len(authed)], rolesMiddleware(user.RoleAdmin, user.RoleAcademic))
	sg := g.Group("/erp/students", mws...)

	sg.GET("", s.queryStudents)
	sg.POST("", s.createStudent)
	sg.POST("/import", s.importStudents)
	sg.GET("/import/template.xlsx", s.studentImportTemplate)

	dg := sg.Group("/:id", objectMiddleware("id", func(ctx echo.Context, id string) (interface{}, error) {
		return s.StudentSvc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", s.retrieveStudent)
	dg.PUT("", s.updateStudent)
	dg.DELETE("", s.destroyStudent)
}

func (s *server) queryStudents(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := student.QueryFilter{
		Search:    qp.String("search"),
		CourseID:  qp.String("course_id"),
		Semester:  qp.Int("semester"),
		SessionID: qp.String("session_id"),
		Batch:     qp.String("batch"),
	}
	ordering := qp.Ordering()
	if err := qp.Err(); err != nil {
		return err
	}
	if err := core.CheckOrdering(ordering, student.OrderingColumns...); err != nil {
		return err
	}
	filter.Clean()

	students, err := s.StudentSvc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.StudentSvc); err != nil {
		return err
	}

	st, err := s.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (s *server) retrieveStudent(ctx echo.Context) error {
	st, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) updateStudent(ctx echo.Context) error {
	st, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.StudentSvc, st); err != nil {
		return err
	}

	st, err = s.StudentSvc.Update(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) destroyStudent(ctx echo.Context) error {
	st, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	if err := s.StudentSvc.Delete(ctx.Request().Context(), st); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importStudents enrolls every valid row of the uploaded spreadsheet; invalid rows are reported, not fatal.
func (s *server) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: importFileField, Error: "an .xlsx file is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	rows, err := docsvc.ParseStudents(file)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	res := student.ImportResult{Created: []student.Student{}, Errors: []student.RowError{}}
	for _, row := range rows {
		data := row.Student
		crs, err := s.CourseSvc.GetByCode(reqCtx, row.CourseCode)
		if err != nil {
			if !core.IsNotFound(err) {
				return errors.Wrap(err, "finding course by code")
			}
			res.Errors = append(res.Errors, student.RowError{
				Row:    row.Row,
				Fields: map[string]string{"course": "course not found"},
			})
			continue
		}
		data.CourseID = crs.ID

		if err = data.Validate(reqCtx, s.Validate, s.StudentSvc); err == nil {
			var st student.Student
			if st, err = s.StudentSvc.Create(reqCtx, data); err == nil {
				res.Created = append(res.Created, st)
				continue
			}
		}
		rowErr, ok := s.importRowError(row.Row, err)
		if !ok {
			return errors.Wrapf(err, "importing row %d", row.Row)
		}
		res.Errors = append(res.Errors, rowErr)
	}

	code := http.StatusOK
	if len(res.Created) > 0 {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}

func (s *server) importRowError(row int, err error) (student.RowError, bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		return student.RowError{Row: row, Error: validationFailedMsg, Fields: core.FieldErrors(origErr, s.Translator)}, true
	case *core.ValidationError:
		rowErr := student.RowError{Row: row, Error: origErr.Error()}
		if len(origErr.Fields) > 0 {
			rowErr.Fields = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				rowErr.Fields[fErr.Field] = fErr.Error
			}
		}
		return rowErr, true
	}
	return student.RowError{}, false
}

func (s *server) studentImportTemplate(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.xlsx"`)
	ctx.Response().Header().Set(echo.HeaderContentType, docsvc.XLSXContentType)
	ctx.Response().WriteHeader(http.StatusOK)
	return docsvc.WriteStudentTemplate(ctx.Response())
}
