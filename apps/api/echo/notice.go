package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/user"
)

func (s *server) registerNoticeAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	ng := g.Group("/notices", authed...)
	publishers := rolesMiddleware(user.RoleAdmin, user.RoleAcademic, user.RoleStaff)

	ng.GET("", s.queryNotices)
	ng.POST("", s.createNotice, publishers)

	dg := ng.Group("/:id", s.noticeMiddleware())
	dg.GET("", s.retrieveNotice)
	dg.PUT("", s.updateNotice, publishers)
	dg.DELETE("", s.destroyNotice, publishers)
}

func (s *server) queryNotices(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	qp := newQueryParams(ctx)
	filter := notice.QueryFilter{
		Category: qp.String("category"),
		Search:   qp.String("search"),
	}
	if err := filter.SetRange(qp.String("from"), qp.String("to")); err != nil {
		return err
	}
	if includeExpired := qp.Bool("include_expired"); includeExpired != nil {
		// only publishers get to see the expired notices
		filter.IncludeExpired = *includeExpired && hasAnyRole(usr, []string{user.RoleAdmin, user.RoleAcademic, user.RoleStaff})
	}
	if err := qp.Err(); err != nil {
		return err
	}
	if !usr.IsAdmin() {
		filter.Roles = usr.Roles
		if filter.Roles == nil {
			filter.Roles = []string{}
		}
	}
	filter.Clean()

	notices, err := s.NoticeSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notices")
	}
	if notices == nil {
		notices = []notice.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (s *server) createNotice(ctx echo.Context) error {
	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := s.NoticeSvc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (s *server) retrieveNotice(ctx echo.Context) error {
	n, err := contextObject[notice.Notice](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *server) updateNotice(ctx echo.Context) error {
	n, err := contextObject[notice.Notice](ctx)
	if err != nil {
		return err
	}

	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	n, err = s.NoticeSvc.Update(ctx.Request().Context(), n, data)
	if err != nil {
		return errors.Wrap(err, "updating notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *server) destroyNotice(ctx echo.Context) error {
	n, err := contextObject[notice.Notice](ctx)
	if err != nil {
		return err
	}
	if err := s.NoticeSvc.Delete(ctx.Request().Context(), n.ID); err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// noticeMiddleware loads the notice, hiding it from the users outside of its audience.
func (s *server) noticeMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			n, err := s.NoticeSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			if !(usr.IsAdmin() || n.VisibleTo(usr.Roles)) {
				return errHttpNotFound
			}
			ctx.Set(contextObjKey, n)
			return next(ctx)
		}
	}
}
