package main

import (
	"log"
	"os"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
	logsvc "github.com/trezcool/simcatalog/services/logger"
	"github.com/trezcool/simcatalog/storage/database"
	sqlxrepos "github.com/trezcool/simcatalog/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	importLogger := logsvc.NewRollbarLogger(logger, conf)
	importLogger.Enable(!conf.Debug)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	catRepo := sqlxrepos.NewCatalogRepository(db)
	cli := commandLine{
		db:         db.DB,
		usrRepo:    usrRepo,
		usrSvc:     user.NewService(usrRepo),
		catalogSvc: catalog.NewService(catRepo),
		roadmapSvc: roadmap.NewService(sqlxrepos.NewRoadmapRepository(db), catRepo),
		importSvc:  importer.NewService(sqlxrepos.NewImportRepository(db), nil, importLogger, conf),
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
