package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/attachment"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/report"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc       user.ServiceInterface
		CatalogSvc    *catalog.Service
		RoadmapSvc    *roadmap.Service
		ImportSvc     *importer.Service
		WorkbookSvc   *importer.WorkbookImporter
		ReportSvc     *report.Service
		AttachmentSvc *attachment.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		tokens   *tokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   newTokenIssuer(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(conf)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home)
	s.app.GET("/health", health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())

	registerUserAPI(v1, jwt, s.tokens, s.deps.UserSvc, s.deps.Validate)
	registerCatalogAPI(v1, jwt, s.deps.CatalogSvc, s.deps.RoadmapSvc, s.deps.Validate)
	registerSimulatorAPI(v1, jwt, s.deps.CatalogSvc, s.deps.Validate)
	registerRoadmapAPI(v1, jwt, s.deps.RoadmapSvc, s.deps.Validate)
	registerImportAPI(v1, jwt, s.deps.ImportSvc, s.deps.WorkbookSvc, s.deps.UserSvc)
	registerReportAPI(v1, jwt, s.deps.ReportSvc)
	registerStorageAPI(v1, jwt, s.deps.AttachmentSvc)
}

// bodyLimit leaves room for multipart overhead above the largest accepted file.
func bodyLimit(conf *core.Config) string {
	max := conf.Upload.MaxFileSize
	if conf.Import.MaxFileSize > max {
		max = conf.Import.MaxFileSize
	}
	if max <= 0 {
		max = attachment.DefaultMaxFileSize
	}
	return strconv.FormatInt(max>>20+1, 10) + "M"
}

// Start blocks serving HTTP; failures are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Simcatalog API")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
