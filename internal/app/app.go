// Package app initializes and runs the main application service.
// It configures logging, storage, the upload adapter, authentication and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vzemtsov/listomat/internal/auth"
	"github.com/vzemtsov/listomat/internal/config"
	"github.com/vzemtsov/listomat/internal/db/jsondb"
	"github.com/vzemtsov/listomat/internal/db/memorystorage"
	"github.com/vzemtsov/listomat/internal/db/postgresdb"
	"github.com/vzemtsov/listomat/internal/db/storage"
	"github.com/vzemtsov/listomat/internal/ipchecker"
	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/router"
	"github.com/vzemtsov/listomat/internal/service"
	"github.com/vzemtsov/listomat/internal/uploader"
)

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the listings service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage and the upload adapter
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	tokenSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.TokenSigningSecretKey)
	if err != nil {
		return nil, err
	}

	images, err := getUploaderByType(app.cfg)
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	svc := service.New(app.db, images)
	identity := auth.New(app.db, tokenSigningSecretKey, app.cfg.TokenTTL)

	routerOptions := []router.Option{}
	if app.cfg.UploadsDir != "" {
		routerOptions = append(routerOptions, router.WithUploadsDir(app.cfg.UploadsDir))
	}

	app.httpHandler = router.New(
		svc,
		identity,
		identity,
		ipChecker,
		app.cfg.MaxImagesPerProduct,
		routerOptions...,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

func getUploaderByType(cfg *config.Config) (uploader.Uploader, error) {
	if cfg.UploadsDir != "" {
		return uploader.NewDiskUploader(cfg.UploadsDir, cfg.PublicBaseURL)
	}

	return uploader.NewPlaceholderUploader(cfg.PlaceholderImageBase), nil
}
