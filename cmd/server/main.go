package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-message-triage/automation"
	"github.com/jrsteele09/go-message-triage/automation/devdriver"
	"github.com/jrsteele09/go-message-triage/classifier"
	"github.com/jrsteele09/go-message-triage/clientmanager"
	"github.com/jrsteele09/go-message-triage/internal/config"
	"github.com/jrsteele09/go-message-triage/internal/database/migrate"
	messagespg "github.com/jrsteele09/go-message-triage/messages/postgres"
	"github.com/jrsteele09/go-message-triage/server"
	sessionspg "github.com/jrsteele09/go-message-triage/sessionstore/postgres"
	"github.com/jrsteele09/go-message-triage/triage"
	userspg "github.com/jrsteele09/go-message-triage/users/postgres"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	db, err := sql.Open("postgres", c.GetDatabaseURL())
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err := migrate.Run(db); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	factory, err := sessionFactory(c)
	if err != nil {
		return err
	}

	classifierClient := classifier.NewHTTPClient(classifier.Config{
		AnalyzeURL: c.GetAnalyzeURL(),
		PredictURL: c.GetPredictURL(),
		Timeout:    c.GetClassifierTimeout(),
	})

	messageRepo := messagespg.New(db)
	pipeline, err := triage.New(messageRepo, classifierClient, c.GetUploadDir(), c.GetTextRetention(),
		triage.WithLogger(logger.With().Str("component", "triage").Logger()))
	if err != nil {
		return errors.Wrap(err, "creating triage pipeline")
	}

	manager, err := clientmanager.New(factory, sessionspg.New(db), pipeline.HandleMessage,
		clientmanager.WithInitTimeout(c.GetInitTimeout()),
		clientmanager.WithLogger(logger.With().Str("component", "clientmanager").Logger()))
	if err != nil {
		return errors.Wrap(err, "creating client manager")
	}

	srv, err := server.New(c, manager, pipeline, messageRepo, userspg.New(db), logger)
	if err != nil {
		return errors.Wrap(err, "creating server")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweeper(sweepCtx, pipeline, c.GetSweepInterval(), logger)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

// sessionFactory selects the automation driver for the messaging network.
func sessionFactory(c config.Config) (automation.Factory, error) {
	switch driver := c.GetSessionDriver(); driver {
	case "dev":
		return devdriver.New(), nil
	default:
		return nil, errors.Errorf("unknown session driver %q", driver)
	}
}

// runSweeper periodically deletes messages that were classified irrelevant
// but whose inline cleanup did not complete.
func runSweeper(ctx context.Context, pipeline *triage.Pipeline, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pipeline.Sweep(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			logger.Info().Int("removed", removed).Msg("retention sweep completed")
		}
	}
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
