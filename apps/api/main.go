package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/Chrouos/tomato-website-sub000/apps/api/echo"
	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	"github.com/Chrouos/tomato-website-sub000/core/push"
	logsvc "github.com/Chrouos/tomato-website-sub000/services/logger"
	"github.com/Chrouos/tomato-website-sub000/storage/database"
	sqlxrepos "github.com/Chrouos/tomato-website-sub000/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(std, err)
	defer db.Close()
	errAndDie(std, database.Ping(db))

	// set up services
	registry := push.NewRegistry()
	hub := push.NewHub(registry, logger, core.Conf)
	defer hub.Stop()

	ledger := credit.NewService(db, sqlxrepos.NewCreditRepository(db))
	encourageSvc := encourage.NewService(
		db,
		sqlxrepos.NewLetterRepository(db),
		sqlxrepos.NewUserRepository(db),
		ledger,
		hub,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:           core.Conf.Server.Addr,
			Logger:         logger,
			EncourageSvc:   encourageSvc,
			Registry:       registry,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		},
	)

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()

	select {
	case err = <-serverErrors:
		errAndDie(std, err)
	case sig := <-shutdown:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = app.Stop(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)
		}
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
