// Package server wires storage, identity, token, archive and telemetry
// components into the HTTP API and runs it until a shutdown signal.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/archive"
	"github.com/dmitrijs2005/taskmate/internal/server/auth"
	"github.com/dmitrijs2005/taskmate/internal/server/config"
	"github.com/dmitrijs2005/taskmate/internal/server/httpapi"
	"github.com/dmitrijs2005/taskmate/internal/server/identity"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/server/services"
	"github.com/dmitrijs2005/taskmate/internal/telemetry"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	manager   repomanager.RepositoryManager
	telemetry *telemetry.Provider
	server    *httpapi.Server
}

// seam for tests
var openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	return repomanager.OpenPostgres(ctx, dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile})

	manager, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := manager.RunMigrations(ctx); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, manager: manager}
	if err := app.init(ctx); err != nil {
		_ = manager.Close()
		return nil, err
	}
	return app, nil
}

func openStore(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return openPostgres(ctx, c.DatabaseDSN)
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Exporter:    c.TelemetryExporter,
		Endpoint:    c.TelemetryEndpoint,
		ServiceName: "taskmate-server",
	})
	if err != nil {
		return fmt.Errorf("telemetry init error: %w", err)
	}
	app.telemetry = tp

	tokens, err := auth.NewAuthority(c.SecretKey)
	if err != nil {
		return fmt.Errorf("token authority init error: %w", err)
	}

	var verifier identity.Verifier = identity.Disabled{}
	if c.GoogleClientID != "" {
		verifier, err = identity.NewGoogleVerifier(c.GoogleClientID)
		if err != nil {
			return err
		}
	} else {
		app.logger.Warn(ctx, "no Google client id configured, login is disabled")
	}

	var archiver archive.Archiver = archive.Nop{}
	if c.S3Bucket != "" {
		archiver, err = archive.NewS3Archiver(ctx, archive.Options{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("archive init error: %w", err)
		}
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("schema init error: %w", err)
	}

	syncSvc, err := services.NewSyncService(app.manager, archiver, tp, app.logger)
	if err != nil {
		return err
	}

	app.server = httpapi.NewServer(app.logger, httpapi.Deps{
		Accounts:    services.NewAccountService(app.manager, verifier, tokens, app.logger),
		Sync:        syncSvc,
		Preferences: services.NewPreferenceService(app.manager, tp.Tracer, app.logger),
		Tasks:       services.NewTaskService(app.manager),
		Tokens:      tokens,
		Validator:   validator,
	}, httpapi.Options{
		Address:         c.HTTPAddr,
		CookieSecure:    c.CookieSecure,
		MaxBodyBytes:    c.MaxBodyBytes,
		ShutdownTimeout: c.ShutdownTimeout,
	})
	return nil
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

// Run serves until a signal arrives or ctx is cancelled, then stops the
// HTTP server, flushes telemetry and closes storage, in that order.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := app.initSignalHandler(ctx)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	runErr := app.server.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
	defer cancel()

	err := errors.Join(runErr, app.telemetry.Shutdown(shutdownCtx), app.manager.Close())
	app.logger.Info(ctx, "App stopped")
	return err
}
