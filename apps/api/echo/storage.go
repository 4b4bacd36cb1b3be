package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/attachment"
	"github.com/trezcool/simcatalog/core/user"
)

type storageApi struct {
	svc *attachment.Service
}

func registerStorageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attachment.Service) {
	api := storageApi{svc: svc}

	g.POST("/upload", api.upload, jwt, roleMiddleware(user.RoleEditor))
	g.GET("/storage/simulators/*", api.download, jwt, roleMiddleware(user.RoleViewer))
}

func (api *storageApi) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	up, err := api.svc.Upload(ctx.Request().Context(), claims.Subject, formFile(ctx))
	if err != nil {
		cause := errors.Cause(err)
		if _, tooLarge := cause.(*attachment.FileTooLargeError); tooLarge ||
			cause == attachment.ErrFileRequired || cause == attachment.ErrTypeNotAllowed {
			return core.NewValidationError(cause, core.FieldError{Field: "file", Error: cause.Error()})
		}
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, up)
}

func (api *storageApi) download(ctx echo.Context) error {
	rc, contentType, err := api.svc.Open(ctx.Request().Context(), ctx.Param("*"))
	if err != nil {
		return err
	}
	defer rc.Close()

	h := ctx.Response().Header()
	h.Set("X-Content-Type-Options", "nosniff")
	if activeContent(contentType) {
		// uploaded pages run scripts in an opaque origin, away from the API's
		h.Set("Content-Security-Policy", "sandbox allow-scripts allow-forms allow-pointer-lock")
		h.Set("Cache-Control", "private, max-age=3600")
	} else {
		h.Set("Cache-Control", "public, max-age=3600")
	}
	return ctx.Stream(http.StatusOK, contentType, rc)
}

func activeContent(contentType string) bool {
	mt := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return mt == "text/html" || mt == "application/javascript"
}
