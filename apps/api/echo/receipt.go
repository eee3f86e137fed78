package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/user"
)

const pdfContentType = "application/pdf"

func (s *server) registerReceiptAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	rg := g.Group("/receipts", authed...)
	staff := rolesMiddleware(user.RoleAdmin, user.RoleStaff)

	rg.GET("", s.queryReceipts, staff)
	rg.POST("", s.createReceipt, staff)

	dg := rg.Group("/:id", s.receiptMiddleware())
	dg.GET("", s.retrieveReceipt)
	dg.GET("/pdf", s.receiptPDF)
}

func (s *server) queryReceipts(ctx echo.Context) error {
	filter, err := receiptFilter(ctx)
	if err != nil {
		return err
	}
	receipts, err := s.FeeSvc.QueryReceipts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if receipts == nil {
		receipts = []fee.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}

func (s *server) createReceipt(ctx echo.Context) error {
	var data fee.NewReceipt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReceipt")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	r, err := s.FeeSvc.RecordPayment(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (s *server) retrieveReceipt(ctx echo.Context) error {
	r, err := contextObject[fee.Receipt](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (s *server) receiptPDF(ctx echo.Context) error {
	r, err := contextObject[fee.Receipt](ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.FeeSvc.RenderReceipt(ctx.Request().Context(), &buf, r); err != nil {
		return errors.Wrap(err, "rendering receipt")
	}
	return attachment(ctx, r.ReceiptNo+".pdf", pdfContentType, buf.Bytes())
}

// receiptMiddleware loads the receipt; students may only see their own.
func (s *server) receiptMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			reqCtx := ctx.Request().Context()
			r, err := s.FeeSvc.GetReceipt(reqCtx, ctx.Param("id"))
			if err != nil {
				return err
			}

			if !(usr.IsAdmin() || usr.IsStaff()) {
				if !usr.IsStudent() {
					return errHttpForbidden
				}
				st, err := s.StudentSvc.GetByUserID(reqCtx, usr.ID)
				if err != nil {
					if core.IsNotFound(err) {
						return errHttpNotFound
					}
					return errors.Wrap(err, "finding student by user ID")
				}
				if st.ID != r.StudentID {
					return errHttpNotFound
				}
			}

			ctx.Set(contextObjKey, r)
			return next(ctx)
		}
	}
}
