package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	docsvc "github.com/campuserp/erp/services/documents"
)

type FeeSummaryResponse struct {
	Student   student.Student `json:"student"`
	Summaries []fee.Summary   `json:"summaries"`
}

func (s *server) registerFeeAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	fg := g.Group("/erp/fee", authed...)
	accountants := rolesMiddleware(user.RoleAdmin, user.RoleStaffAccounts)
	staff := rolesMiddleware(user.RoleAdmin, user.RoleStaff)

	fg.GET("/structure", s.queryStructures)
	fg.POST("/structure", s.createStructure, accountants)

	dg := fg.Group("/structure/:id", objectMiddleware("id", func(ctx echo.Context, id string) (interface{}, error) {
		return s.FeeSvc.GetStructure(ctx.Request().Context(), id)
	}))
	dg.GET("", s.retrieveStructure)
	dg.PUT("", s.updateStructure, accountants)
	dg.DELETE("", s.destroyStructure, accountants)

	fg.GET("/summary/:studentId", s.feeSummary, staff)
	fg.GET("/ledger", s.ledger, staff)
	fg.GET("/ledger.xlsx", s.ledgerXLSX, staff)
}

func (s *server) queryStructures(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := fee.StructureFilter{
		CourseID:  qp.String("course_id"),
		SessionID: qp.String("session_id"),
		Semester:  qp.Int("semester"),
	}
	if err := qp.Err(); err != nil {
		return err
	}

	structures, err := s.FeeSvc.QueryStructures(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	if structures == nil {
		structures = []fee.Structure{}
	}
	return ctx.JSON(http.StatusOK, structures)
}

func (s *server) createStructure(ctx echo.Context) error {
	var data fee.NewStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStructure")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.FeeSvc); err != nil {
		return err
	}

	st, err := s.FeeSvc.CreateStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (s *server) retrieveStructure(ctx echo.Context) error {
	st, err := contextObject[fee.Structure](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) updateStructure(ctx echo.Context) error {
	st, err := contextObject[fee.Structure](ctx)
	if err != nil {
		return err
	}

	var data fee.NewStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStructure")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.FeeSvc, st); err != nil {
		return err
	}

	st, err = s.FeeSvc.UpdateStructure(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "updating fee structure")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) destroyStructure(ctx echo.Context) error {
	st, err := contextObject[fee.Structure](ctx)
	if err != nil {
		return err
	}
	if err := s.FeeSvc.DeleteStructure(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) feeSummary(ctx echo.Context) error {
	st, err := s.StudentSvc.GetByID(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return err
	}
	return s.writeFeeSummaries(ctx, st, ctx.QueryParam("structure_id"))
}

// writeFeeSummaries responds with the summary of one Structure when structureID is set, or of all of them.
func (s *server) writeFeeSummaries(ctx echo.Context, st student.Student, structureID string) error {
	resp := FeeSummaryResponse{Student: st}
	if structureID != "" {
		sum, err := s.FeeSvc.Summary(ctx.Request().Context(), st, structureID)
		if err != nil {
			return err
		}
		resp.Summaries = []fee.Summary{sum}
	} else {
		sums, err := s.FeeSvc.StudentSummaries(ctx.Request().Context(), st)
		if err != nil {
			return errors.Wrap(err, "summarizing student fees")
		}
		resp.Summaries = sums
	}
	if resp.Summaries == nil {
		resp.Summaries = []fee.Summary{}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func receiptFilter(ctx echo.Context) (fee.ReceiptFilter, error) {
	qp := newQueryParams(ctx)
	filter := fee.ReceiptFilter{
		StudentID:   qp.String("student_id"),
		StructureID: qp.String("structure_id"),
		Mode:        qp.String("mode"),
		From:        qp.Date("from"),
		To:          qp.Date("to"),
	}
	return filter, qp.Err()
}

func (s *server) ledger(ctx echo.Context) error {
	filter, err := receiptFilter(ctx)
	if err != nil {
		return err
	}
	entries, err := s.FeeSvc.Ledger(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building ledger")
	}
	if entries == nil {
		entries = []fee.LedgerEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *server) ledgerXLSX(ctx echo.Context) error {
	filter, err := receiptFilter(ctx)
	if err != nil {
		return err
	}
	entries, err := s.FeeSvc.Ledger(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building ledger")
	}

	var buf bytes.Buffer
	if err := docsvc.WriteLedger(&buf, entries); err != nil {
		return errors.Wrap(err, "writing ledger")
	}
	return attachment(ctx, "fee-ledger.xlsx", docsvc.XLSXContentType, buf.Bytes())
}

// attachment sends a rendered document as a download.
func attachment(ctx echo.Context, filename, contentType string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, contentType, data)
}
