package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

type catalogApi struct {
	svc        *catalog.Service
	roadmapSvc *roadmap.Service
	validate   *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, roadmapSvc *roadmap.Service, validate *validator.Validate) {
	api := catalogApi{svc: svc, roadmapSvc: roadmapSvc, validate: validate}
	admin := roleMiddleware(user.RoleAdmin)

	gg := g.Group("/groups", jwt)
	gg.GET("", api.queryGroups)
	gg.GET("/:id", api.retrieveGroup)
	gg.POST("", api.createGroup, admin)
	gg.PUT("/:id", api.updateGroup, admin)
	gg.DELETE("/:id", api.destroyGroup, admin)

	ag := g.Group("/areas", jwt)
	ag.GET("", api.queryAreas)
	ag.GET("/:id", api.retrieveArea)
	ag.POST("", api.createArea, admin)
	ag.PUT("/:id", api.updateArea, admin)
	ag.DELETE("/:id", api.destroyArea, admin)
	ag.GET("/:id/subareas", api.querySubareas)
	ag.POST("/:id/subareas", api.createSubarea, admin)

	sg := g.Group("/subareas", jwt)
	sg.GET("/:id", api.retrieveSubarea)
	sg.PUT("/:id", api.updateSubarea, admin)
	sg.DELETE("/:id", api.destroySubarea, admin)
}

// GroupResponse is a group with its catalog numbers and its roadmap, if any.
type GroupResponse struct {
	catalog.GroupDetail
	Roadmap *roadmap.Roadmap `json:"roadmap"`
}

// Groups

func (api *catalogApi) groupResponses(ctx echo.Context, details []catalog.GroupDetail) ([]GroupResponse, error) {
	roadmaps, err := api.roadmapSvc.Query(ctx.Request().Context())
	if err != nil {
		return nil, errors.Wrap(err, "querying roadmaps")
	}
	byGroup := make(map[string]*roadmap.Roadmap, len(roadmaps))
	for i := range roadmaps {
		byGroup[roadmaps[i].GroupID] = &roadmaps[i]
	}

	resp := make([]GroupResponse, 0, len(details))
	for _, gd := range details {
		resp = append(resp, GroupResponse{GroupDetail: gd, Roadmap: byGroup[gd.ID]})
	}
	return resp, nil
}

func (api *catalogApi) queryGroups(ctx echo.Context) error {
	details, err := api.svc.QueryGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	resp, err := api.groupResponses(ctx, details)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *catalogApi) retrieveGroup(ctx echo.Context) error {
	gd, err := api.svc.GetGroupDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	resp, err := api.groupResponses(ctx, []catalog.GroupDetail{gd})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp[0])
}

func (api *catalogApi) createGroup(ctx echo.Context) error {
	var data catalog.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *catalogApi) updateGroup(ctx echo.Context) error {
	var data catalog.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.UpdateGroup(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *catalogApi) destroyGroup(ctx echo.Context) error {
	if err := api.svc.DeleteGroup(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Areas

func (api *catalogApi) queryAreas(ctx echo.Context) error {
	areas, err := api.svc.QueryAreas(ctx.Request().Context(), core.CleanString(ctx.QueryParam("groupId")))
	if err != nil {
		return errors.Wrap(err, "querying areas")
	}
	if areas == nil {
		areas = []catalog.Area{}
	}
	return ctx.JSON(http.StatusOK, areas)
}

func (api *catalogApi) retrieveArea(ctx echo.Context) error {
	ad, err := api.svc.GetArea(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ad)
}

func (api *catalogApi) createArea(ctx echo.Context) error {
	var data catalog.NewArea
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArea")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	area, err := api.svc.CreateArea(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating area")
	}
	return ctx.JSON(http.StatusCreated, area)
}

func (api *catalogApi) updateArea(ctx echo.Context) error {
	var data catalog.NewArea
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArea")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	area, err := api.svc.UpdateArea(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating area")
	}
	return ctx.JSON(http.StatusOK, area)
}

func (api *catalogApi) destroyArea(ctx echo.Context) error {
	if err := api.svc.DeleteArea(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting area")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subareas

func (api *catalogApi) querySubareas(ctx echo.Context) error {
	subareas, err := api.svc.QuerySubareas(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying subareas")
	}
	if subareas == nil {
		subareas = []catalog.Subarea{}
	}
	return ctx.JSON(http.StatusOK, subareas)
}

func (api *catalogApi) createSubarea(ctx echo.Context) error {
	var data catalog.NewSubarea
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubarea")
	}
	data.AreaID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubarea(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subarea")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *catalogApi) retrieveSubarea(ctx echo.Context) error {
	sub, err := api.svc.GetSubarea(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) updateSubarea(ctx echo.Context) error {
	sub, err := api.svc.GetSubarea(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data catalog.NewSubarea
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubarea")
	}
	data.AreaID = sub.AreaID // rename only
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.UpdateSubarea(ctx.Request().Context(), sub.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subarea")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) destroySubarea(ctx echo.Context) error {
	if err := api.svc.DeleteSubarea(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subarea")
	}
	return ctx.NoContent(http.StatusNoContent)
}
