package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/user"
)

func (s *server) registerPaymentAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	mws := append(authed[:len(authed):len(authed)], rolesMiddleware(user.RoleStudent), s.studentMiddleware())
	pg := g.Group("/payments", mws...)
	pg.POST("/order", s.createPaymentOrder)
	pg.POST("/verify", s.verifyPayment)
}

func (s *server) createPaymentOrder(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data fee.NewPaymentOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaymentOrder")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	checkout, err := s.FeeSvc.CreateOrder(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "creating payment order")
	}
	return ctx.JSON(http.StatusCreated, checkout)
}

func (s *server) verifyPayment(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data fee.VerifyPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyPayment")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	r, err := s.FeeSvc.VerifyPayment(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, r)
}
