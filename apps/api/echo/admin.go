package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/university"
	"github.com/academia-labs/academia/core/user"
)

type adminApi struct {
	deps *Deps
}

// registerAdminAPI mounts the Admin endpoints on g, already guarded by the JWT and role middlewares.
func registerAdminAPI(g *echo.Group, deps *Deps) {
	api := adminApi{deps: deps}

	g.POST("/universities", api.createUniversity)
	g.GET("/universities", api.queryUniversities)

	g.POST("/books", api.createBook)
	g.GET("/books", api.queryBooks)
	g.DELETE("/books/:id", api.destroyBook)

	g.GET("/topics", api.queryTopics)

	cg := g.Group("/courses")
	cg.POST("", api.createCourse)
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse)
	cg.DELETE("/:id", api.destroyCourse)
	cg.GET("/:id/dependents", api.queryDependents)
	cg.POST("/:id/instructors", api.assignInstructor)

	g.POST("/analysts", api.createAnalyst)
	g.GET("/instructors", api.queryInstructors)
	g.DELETE("/users/:id", api.destroyUser)
}

// Catalog

func (api *adminApi) createUniversity(ctx echo.Context) error {
	var data university.NewUniversity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUniversity")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	uni, err := api.deps.UniversitySvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating university")
	}
	return ctx.JSON(http.StatusCreated, uni)
}

func (api *adminApi) queryUniversities(ctx echo.Context) error {
	unis, err := api.deps.UniversitySvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying universities")
	}
	return ctx.JSON(http.StatusOK, unis)
}

func (api *adminApi) createBook(ctx echo.Context) error {
	return createBook(ctx, api.deps)
}

func (api *adminApi) queryBooks(ctx echo.Context) error {
	return queryBooks(ctx, api.deps)
}

func (api *adminApi) destroyBook(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.deps.BookSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting book")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) queryTopics(ctx echo.Context) error {
	return queryTopics(ctx, api.deps)
}

// shared with the instructor endpoints

func createBook(ctx echo.Context, deps *Deps) error {
	var data book.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err := data.Validate(deps.Validate); err != nil {
		return err
	}

	b, err := deps.BookSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func queryBooks(ctx echo.Context, deps *Deps) error {
	books, err := deps.BookSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	return ctx.JSON(http.StatusOK, books)
}

func queryTopics(ctx echo.Context, deps *Deps) error {
	topics, err := deps.CourseSvc.Topics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	return ctx.JSON(http.StatusOK, topics)
}

// Courses

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *adminApi) queryCourses(ctx echo.Context) error {
	return queryCourses(ctx, api.deps)
}

func queryCourses(ctx echo.Context, deps *Deps) error {
	filter, err := bindCourseFilter(ctx)
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	courses, err := deps.CourseSvc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) retrieveCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.deps.CourseSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.CourseSvc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

// destroyCourse runs the deletion workflow: `force` confirms a deletion that has dependents,
// `replace_with` rewires them to another course.
func (api *adminApi) destroyCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	req, err := bindDeleteRequest(ctx, id)
	if err != nil {
		return err
	}

	deletion, err := api.deps.CourseSvc.Delete(ctx.Request().Context(), sess, req)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, deletion)
}

func (api *adminApi) queryDependents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	deps, err := api.deps.CourseSvc.DependentsOf(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing dependents")
	}
	return ctx.JSON(http.StatusOK, deps)
}

func (api *adminApi) assignInstructor(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.AssignInstructor
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignInstructor")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.CourseSvc.AddInstructor(ctx.Request().Context(), id, data.InstructorID)
	if err != nil {
		return errors.Wrap(err, "assigning instructor")
	}
	return ctx.JSON(http.StatusOK, c)
}

// Users

func (api *adminApi) createAnalyst(ctx echo.Context) error {
	var data user.NewAnalyst
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnalyst")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.CreateAnalyst(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating analyst")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) queryInstructors(ctx echo.Context) error {
	users, err := api.deps.UserSvc.Instructors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying instructors")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) destroyUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.deps.UserSvc.Delete(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if usr.IsInstructor() {
		// cached courses still list them
		api.deps.CourseSvc.ForgetAll(reqCtx)
	}
	api.deps.Logger.Info(fmt.Sprintf("user %d (%s) deleted", usr.ID, usr.Role), sess)
	return ctx.NoContent(http.StatusNoContent)
}
