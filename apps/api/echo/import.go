package echoapi

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/user"
)

const msgConfirmRequired = "Confirmação obrigatória: envie confirm=true para gravar a importação"

type importApi struct {
	svc      *importer.Service
	workbook *importer.WorkbookImporter
	userSvc  user.ServiceInterface
}

func registerImportAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *importer.Service,
	workbook *importer.WorkbookImporter,
	userSvc user.ServiceInterface,
) {
	api := importApi{svc: svc, workbook: workbook, userSvc: userSvc}

	ig := g.Group("/import", jwt)
	ig.GET("/template", api.template, roleMiddleware(user.RoleViewer))

	eg := ig.Group("", roleMiddleware(user.RoleEditor))
	eg.POST("/validate", api.validateFile)
	eg.POST("/commit", api.commit)
	eg.POST("/excel", api.importWorkbook)
}

type CommitRefusal struct {
	OK      bool                `json:"ok"`
	Message string              `json:"message"`
	Errors  []importer.RowError `json:"errors,omitempty"`
}

// formFile returns the "file" part of a multipart form; nil when absent.
func formFile(ctx echo.Context) *multipart.FileHeader {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil
	}
	return fh
}

func (api *importApi) validateFile(ctx echo.Context) error {
	fi, err := importer.ReadFile(formFile(ctx), api.svc.MaxFileSize())
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, importer.InputErrorResponse(err))
	}

	resp, err := api.svc.Validate(fi)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *importApi) commit(ctx echo.Context) error {
	if ctx.FormValue("confirm") != "true" {
		return ctx.JSON(http.StatusBadRequest, CommitRefusal{Message: msgConfirmRequired})
	}

	fi, err := importer.ReadFile(formFile(ctx), api.svc.MaxFileSize())
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, importer.InputErrorResponse(err))
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	resp, err := api.svc.Commit(ctx.Request().Context(), fi, usr)
	if err != nil {
		if ife, ok := errors.Cause(err).(*importer.InvalidFileError); ok {
			return ctx.JSON(http.StatusBadRequest, CommitRefusal{Message: ife.Error(), Errors: ife.Errors})
		}
		return ctx.JSON(http.StatusBadRequest, resp)
	}
	if !resp.OK {
		return ctx.JSON(http.StatusInternalServerError, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// importWorkbook loads a multi-sheet workbook row by row; row failures come back in the 200 response.
func (api *importApi) importWorkbook(ctx echo.Context) error {
	fi, err := importer.ReadFile(formFile(ctx), api.svc.MaxFileSize())
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, importer.InputErrorResponse(err))
	}

	res, err := api.workbook.Import(ctx.Request().Context(), fi)
	if err != nil {
		switch errors.Cause(err) {
		case importer.ErrNotWorkbook, importer.ErrUnreadableArchive, importer.ErrEmptyFile:
			return ctx.JSON(http.StatusBadRequest, importer.InputErrorResponse(err))
		}
		return errors.Wrap(err, "importing workbook")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *importApi) template(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+importer.TemplateFileName+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", importer.Template())
}
