package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/user"
)

func (s *server) registerSessionAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	sg := g.Group("/erp/sessions", authed...)
	managers := rolesMiddleware(user.RoleAdmin, user.RoleAcademic)

	sg.GET("", s.querySessions)
	sg.POST("", s.createSession, managers)
	sg.GET("/active", s.activeSession)

	dg := sg.Group("/:id", objectMiddleware("id", func(ctx echo.Context, id string) (interface{}, error) {
		return s.SessionSvc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", s.retrieveSession)
	dg.PUT("", s.updateSession, managers)
	dg.POST("/activate", s.activateSession, managers)
	dg.DELETE("", s.destroySession, managers)
}

func (s *server) querySessions(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := session.QueryFilter{IsActive: qp.Bool("is_active")}
	if err := qp.Err(); err != nil {
		return err
	}

	sessions, err := s.SessionSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (s *server) activeSession(ctx echo.Context) error {
	sess, err := s.SessionSvc.GetActive(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) createSession(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.SessionSvc); err != nil {
		return err
	}

	sess, err := s.SessionSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (s *server) retrieveSession(ctx echo.Context) error {
	sess, err := contextObject[session.Session](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) updateSession(ctx echo.Context) error {
	sess, err := contextObject[session.Session](ctx)
	if err != nil {
		return err
	}

	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.SessionSvc, sess); err != nil {
		return err
	}

	sess, err = s.SessionSvc.Update(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) activateSession(ctx echo.Context) error {
	sess, err := contextObject[session.Session](ctx)
	if err != nil {
		return err
	}
	sess, err = s.SessionSvc.Activate(ctx.Request().Context(), sess.ID)
	if err != nil {
		return errors.Wrap(err, "activating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) destroySession(ctx echo.Context) error {
	sess, err := contextObject[session.Session](ctx)
	if err != nil {
		return err
	}
	if err := s.SessionSvc.Delete(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}
