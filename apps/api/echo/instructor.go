package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/user"
)

type instructorApi struct {
	deps *Deps
}

func registerInstructorAPI(g *echo.Group, deps *Deps) {
	api := instructorApi{deps: deps}

	pg := g.Group("/profile")
	pg.GET("", api.retrieveProfile)
	pg.PUT("", api.updateProfile)
	pg.POST("/expertise", api.addExpertise)
	pg.DELETE("/expertise/:area", api.removeExpertise)

	cg := g.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.PUT("/:id/content", api.updateContent)
	cg.PUT("/:id/book", api.changeBook)
	cg.GET("/:id/students", api.queryStudents)

	g.PUT("/evaluations", api.evaluate)

	g.POST("/books", api.createBook)
	g.GET("/books", api.queryBooks)
	g.GET("/topics", api.queryTopics)
}

// Profile

func (api *instructorApi) retrieveProfile(ctx echo.Context) error {
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

func (api *instructorApi) updateProfile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data user.UpdateInstructorProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInstructorProfile")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.UpdateInstructorProfile(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *instructorApi) addExpertise(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data user.ExpertiseArea
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExpertiseArea")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.AddExpertise(ctx.Request().Context(), sess, data.Area)
	if err != nil {
		return errors.Wrap(err, "adding expertise")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *instructorApi) removeExpertise(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := api.deps.UserSvc.RemoveExpertise(ctx.Request().Context(), sess, ctx.Param("area"))
	if err != nil {
		return errors.Wrap(err, "removing expertise")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// Courses

func (api *instructorApi) queryCourses(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	courses, err := api.deps.CourseSvc.Teaching(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "querying taught courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *instructorApi) updateContent(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.ContentUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentUpdate")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.CourseSvc.UpdateContent(ctx.Request().Context(), sess, id, data)
	if err != nil {
		return errors.Wrap(err, "updating course content")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *instructorApi) changeBook(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.ChangeBook
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeBook")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.CourseSvc.ChangeBook(ctx.Request().Context(), sess, id, data)
	if err != nil {
		return errors.Wrap(err, "changing course book")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *instructorApi) queryStudents(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.deps.EnrollmentSvc.CourseStudents(ctx.Request().Context(), sess, id)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *instructorApi) evaluate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data enrollment.Evaluate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Evaluate")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	e, err := api.deps.EnrollmentSvc.Evaluate(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "evaluating student")
	}
	return ctx.JSON(http.StatusOK, e)
}

// Catalog

func (api *instructorApi) createBook(ctx echo.Context) error {
	return createBook(ctx, api.deps)
}

func (api *instructorApi) queryBooks(ctx echo.Context) error {
	return queryBooks(ctx, api.deps)
}

func (api *instructorApi) queryTopics(ctx echo.Context) error {
	return queryTopics(ctx, api.deps)
}
