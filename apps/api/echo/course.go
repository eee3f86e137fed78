package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/user"
)

func (s *server) registerCourseAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	cg := g.Group("/erp/courses", authed...)
	managers := rolesMiddleware(user.RoleAdmin, user.RoleAcademic)

	cg.GET("", s.queryCourses)
	cg.POST("", s.createCourse, managers)

	dg := cg.Group("/:id", objectMiddleware("id", func(ctx echo.Context, id string) (interface{}, error) {
		return s.CourseSvc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", s.retrieveCourse)
	dg.PUT("", s.updateCourse, managers)
	dg.DELETE("", s.destroyCourse, managers)
}

func (s *server) queryCourses(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := course.QueryFilter{
		Search:     qp.String("search"),
		Department: qp.String("department"),
	}
	filter.Clean()

	courses, err := s.CourseSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *server) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.CourseSvc); err != nil {
		return err
	}

	c, err := s.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *server) retrieveCourse(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *server) updateCourse(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), s.Validate, s.CourseSvc, c); err != nil {
		return err
	}

	c, err = s.CourseSvc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *server) destroyCourse(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	if err := s.CourseSvc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
