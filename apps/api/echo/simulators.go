package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/user"
)

type simulatorApi struct {
	svc      *catalog.Service
	validate *validator.Validate
}

func registerSimulatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, validate *validator.Validate) {
	api := simulatorApi{svc: svc, validate: validate}

	sg := g.Group("/simulators", jwt)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)

	eg := sg.Group("", roleMiddleware(user.RoleEditor))
	eg.POST("", api.create)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.destroy)
	eg.POST("/:id/duplicate", api.duplicate)
	eg.PATCH("/:id/syllabus", api.updateSyllabus)
	eg.PATCH("/:id/attachment", api.updateAttachment)
}

type SimulatorPage struct {
	Items      []catalog.Discipline `json:"items"`
	Pagination core.Pagination      `json:"pagination"`
}

func (api *simulatorApi) query(ctx echo.Context) error {
	filter := catalog.DisciplineFilter{
		GroupID:   ctx.QueryParam("groupId"),
		AreaID:    ctx.QueryParam("areaId"),
		SubareaID: ctx.QueryParam("subareaId"),
		Query:     ctx.QueryParam("q"),
		Published: queryBool(ctx, "published"),
	}

	items, pagination, err := api.svc.FilterDisciplines(ctx.Request().Context(), filter, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "filtering simulators")
	}
	if items == nil {
		items = []catalog.Discipline{}
	}
	return ctx.JSON(http.StatusOK, SimulatorPage{Items: items, Pagination: pagination})
}

func (api *simulatorApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetDiscipline(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *simulatorApi) create(ctx echo.Context) error {
	var data catalog.NewDiscipline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscipline")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.CreateDiscipline(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating simulator")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *simulatorApi) update(ctx echo.Context) error {
	var data catalog.UpdateDiscipline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDiscipline")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.UpdateDiscipline(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating simulator")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *simulatorApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteDiscipline(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting simulator")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *simulatorApi) duplicate(ctx echo.Context) error {
	d, err := api.svc.DuplicateDiscipline(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "duplicating simulator")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *simulatorApi) updateSyllabus(ctx echo.Context) error {
	var data catalog.UpdateSyllabus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSyllabus")
	}

	d, err := api.svc.UpdateSyllabus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating syllabus")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *simulatorApi) updateAttachment(ctx echo.Context) error {
	var data catalog.UpdateAttachment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttachment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.UpdateAttachment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attachment")
	}
	return ctx.JSON(http.StatusOK, d)
}
