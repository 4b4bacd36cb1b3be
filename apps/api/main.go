package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/simcatalog/apps/api/echo"
	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/attachment"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/report"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
	blobsvc "github.com/trezcool/simcatalog/services/blob"
	emailsvc "github.com/trezcool/simcatalog/services/email"
	logsvc "github.com/trezcool/simcatalog/services/logger"
	"github.com/trezcool/simcatalog/storage/database"
	inmemdb "github.com/trezcool/simcatalog/storage/database/inmem"
	sqlxrepos "github.com/trezcool/simcatalog/storage/database/sqlx"
)

type repositories struct {
	users    user.Repository
	catalog  catalog.Repository
	roadmaps roadmap.Repository
	imports  importer.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up blob storage
	blobs, closeBlobs, err := setUpBlobStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}
	defer func() { _ = closeBlobs() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	roadmap.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors (import pipeline counters).

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	catalogSvc := catalog.NewService(repos.catalog)
	roadmapSvc := roadmap.NewService(repos.roadmaps, repos.catalog)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			UserSvc:       user.NewService(repos.users),
			CatalogSvc:    catalogSvc,
			RoadmapSvc:    roadmapSvc,
			ImportSvc:     importer.NewService(repos.imports, mailSvc, logger, conf),
			WorkbookSvc:   importer.NewWorkbookImporter(catalogSvc, roadmapSvc, validate, translator, logger),
			ReportSvc:     report.NewService(repos.catalog, repos.roadmaps),
			AttachmentSvc: attachment.NewService(blobs, conf.Upload.MaxFileSize),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the configured store: postgres (created and migrated on startup) or memory.
func setUpRepositories(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.InMemory() {
		db := inmemdb.Open()
		return repositories{
			users:    inmemdb.NewUserRepository(db),
			catalog:  inmemdb.NewCatalogRepository(db),
			roadmaps: inmemdb.NewRoadmapRepository(db),
			imports:  inmemdb.NewImportRepository(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:    sqlxrepos.NewUserRepository(db),
		catalog:  sqlxrepos.NewCatalogRepository(db),
		roadmaps: sqlxrepos.NewRoadmapRepository(db),
		imports:  sqlxrepos.NewImportRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setUpBlobStore(conf *core.Config) (attachment.BlobStore, func() error, error) {
	if conf.Upload.Backend == "gcs" {
		store, err := blobsvc.NewGCSStore(context.Background(), conf.Upload.Bucket, conf.Upload.CredentialsFile, conf.Upload.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	store, err := blobsvc.NewLocalStore(conf.Upload.LocalDir, conf.Upload.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() error { return nil }, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
