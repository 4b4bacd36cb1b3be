package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

type roadmapApi struct {
	svc      *roadmap.Service
	validate *validator.Validate
}

func registerRoadmapAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *roadmap.Service, validate *validator.Validate) {
	api := roadmapApi{svc: svc, validate: validate}

	rg := g.Group("/roadmap", jwt)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)

	eg := rg.Group("", roleMiddleware(user.RoleEditor))
	eg.POST("", api.create)
	eg.PUT("/:id", api.update)
	eg.PATCH("/:id/status", api.updateStatus)
}

func (api *roadmapApi) query(ctx echo.Context) error {
	rs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying roadmap")
	}
	return ctx.JSON(http.StatusOK, rs)
}

func (api *roadmapApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roadmapApi) create(ctx echo.Context) error {
	var data roadmap.NewRoadmap
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoadmap")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating roadmap")
	}
	return ctx.JSON(http.StatusCreated, r)
}

// update changes the RICE metrics only; status moves through updateStatus.
func (api *roadmapApi) update(ctx echo.Context) error {
	var data roadmap.UpdateRoadmap
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoadmap")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating roadmap")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roadmapApi) updateStatus(ctx echo.Context) error {
	var data roadmap.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating roadmap status")
	}
	return ctx.JSON(http.StatusOK, r)
}
