package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core/user"
)

type registrationApi struct {
	deps *Deps
}

// registerRegistrationAPI mounts the public sign-up endpoints.
func registerRegistrationAPI(g *echo.Group, deps *Deps) {
	api := registrationApi{deps: deps}

	rg := g.Group("/register")
	rg.POST("/student", api.registerStudent)
	rg.POST("/instructor", api.registerInstructor)
}

func (api *registrationApi) registerStudent(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *registrationApi) registerInstructor(ctx echo.Context) error {
	var data user.NewInstructor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructor")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.RegisterInstructor(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering instructor")
	}
	return ctx.JSON(http.StatusCreated, usr)
}
