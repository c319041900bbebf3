// Package server initializes and runs the document service: database pool,
// migrations, object storage, the service layer, and the HTTP server with
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docvault/internal/logging"
	"docvault/internal/server/blob"
	"docvault/internal/server/config"
	"docvault/internal/server/httpapi"
	"docvault/internal/server/repositories/repomanager"
	"docvault/internal/server/services"

	"github.com/gofiber/fiber/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	app    *fiber.App
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(cfg.DatabasePoolSize)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		Timeout:      cfg.BlobTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	activityService := services.NewActivityService(db, rm, logger)
	permissionService := services.NewPermissionService(db, rm, activityService, logger)
	documentService := services.NewDocumentService(db, rm, store, permissionService, activityService, cfg, logger)
	userService := services.NewUserService(db, rm, activityService, cfg, logger)

	srv := httpapi.NewServer(userService, documentService, permissionService, activityService, db, cfg, logger)

	return &App{config: cfg, logger: logger, db: db, app: srv.App()}, nil
}

// Run serves HTTP until the context is cancelled or an OS signal arrives,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting http server", "addr", a.config.EndpointAddr)
		errCh <- a.app.Listen(a.config.EndpointAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	if err := a.app.Shutdown(); err != nil {
		a.logger.Error(ctx, "http shutdown error", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error(ctx, "db close error", "error", err)
	}

	return nil
}
