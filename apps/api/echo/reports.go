package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/report"
	"github.com/trezcool/simcatalog/core/user"
)

type reportApi struct {
	svc *report.Service
	now func() time.Time
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc, now: time.Now}
	viewer := roleMiddleware(user.RoleViewer)

	rg := g.Group("/reports", jwt, viewer)
	rg.GET("/group-summary", api.groupSummary)
	rg.GET("/area-coverage", api.areaCoverage)
	rg.GET("/ranking-rice", api.ranking)
	rg.GET("/dashboard", api.dashboard)

	g.GET("/export/excel", api.export, jwt, viewer)
}

func (api *reportApi) groupSummary(ctx echo.Context) error {
	summary, err := api.svc.GroupSummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building group summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *reportApi) areaCoverage(ctx echo.Context) error {
	coverage, err := api.svc.AreaCoverage(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building area coverage")
	}
	return ctx.JSON(http.StatusOK, coverage)
}

func (api *reportApi) ranking(ctx echo.Context) error {
	ranking, err := api.svc.Ranking(ctx.Request().Context(), queryInt(ctx, "top", report.DefaultRankingTop))
	if err != nil {
		return errors.Wrap(err, "building RICE ranking")
	}
	return ctx.JSON(http.StatusOK, ranking)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) export(ctx echo.Context) error {
	format, err := report.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return core.NewFieldError("format", err)
	}
	includeUnpublished, _ := strconv.ParseBool(ctx.QueryParam("includeUnpublished"))

	f, err := api.svc.Export(ctx.Request().Context(), format, includeUnpublished, api.now())
	if err != nil {
		return errors.Wrap(err, "exporting catalog")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+f.Name+`"`)
	return ctx.Blob(http.StatusOK, f.ContentType, f.Data)
}
