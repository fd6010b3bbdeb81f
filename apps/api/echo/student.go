package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/user"
)

type studentApi struct {
	deps *Deps
}

func registerStudentAPI(g *echo.Group, deps *Deps) {
	api := studentApi{deps: deps}

	g.GET("/profile", api.retrieveProfile)
	g.PUT("/profile", api.updateProfile)
	g.GET("/courses", api.searchCourses)
	g.POST("/enrollments", api.enroll)
	g.GET("/enrollments", api.queryEnrollments)
}

func (api *studentApi) retrieveProfile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := api.deps.UserSvc.Profile(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *studentApi) updateProfile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data user.UpdateStudentProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudentProfile")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.UpdateStudentProfile(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *studentApi) searchCourses(ctx echo.Context) error {
	return queryCourses(ctx, api.deps)
}

func (api *studentApi) enroll(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data enrollment.Enroll
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enroll")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	e, err := api.deps.EnrollmentSvc.Enroll(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *studentApi) queryEnrollments(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	courses, err := api.deps.EnrollmentSvc.StudentCourses(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, courses)
}
