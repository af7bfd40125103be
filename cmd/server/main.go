package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damacus/cos-browser/internal/config"
	"github.com/damacus/cos-browser/internal/handlers"
	"github.com/damacus/cos-browser/internal/logger"
	customMiddleware "github.com/damacus/cos-browser/internal/middleware"
	"github.com/damacus/cos-browser/internal/operations"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	// batches started over HTTP are cancelled once the server has drained
	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authService := services.NewAuthService(cfg.Storage.Factory())
	registry := operations.NewRegistry(cfg.Server.MaxTrackedOps)

	var workspace *operations.Workspace
	if cfg.Server.WorkspaceDir != "" {
		ws, err := operations.NewWorkspace(cfg.Server.WorkspaceDir)
		if err != nil {
			return err
		}
		workspace = ws
		log.Info().Str("dir", ws.Root()).Msg("file transfers confined to workspace")
	} else {
		log.Warn().Msg("COS_WORKSPACE_DIR is not set, upload and download are disabled")
	}

	e := newServer(baseCtx, deps{
		authService: authService,
		registry:    registry,
		workspace:   workspace,
		defaults: handlers.ConnectionDefaults{
			Endpoint:            cfg.Storage.Endpoint,
			Region:              cfg.Storage.Region,
			TimeoutMs:           cfg.Storage.RequestTimeoutMs,
			PathStyle:           cfg.Storage.PathStyle,
			AllowCustomEndpoint: cfg.Server.AllowCustomEndpoint,
		},
		log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("endpoint", cfg.Storage.Endpoint).
			Str("backend", cfg.Storage.Backend).
			Msg("Starting server")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := e.Shutdown(ctx); err != nil {
		return err
	}

	if n := running(registry); n > 0 {
		log.Warn().Int("operations", n).Msg("cancelling running operations")
	}
	cancel()
	log.Info().Msg("Server exiting")
	return nil
}

func running(registry *operations.Registry) int {
	n := 0
	for _, op := range registry.List() {
		if !op.State().Finished() {
			n++
		}
	}
	return n
}

type deps struct {
	authService *services.AuthService
	registry    *operations.Registry
	workspace   *operations.Workspace
	defaults    handlers.ConnectionDefaults
	log         zerolog.Logger
}

func newServer(baseCtx context.Context, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	authHandler := handlers.NewAuthHandler(d.authService, d.defaults, d.log)
	browserHandler := handlers.NewBrowserHandler(baseCtx, d.registry, d.workspace, d.log)
	operationsHandler := handlers.NewOperationsHandler(d.registry)

	// Middleware
	e.Use(customMiddleware.RequestLogger(d.log))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders())
	e.Use(customMiddleware.CSRF())
	// Apply auth middleware globally - it will skip public routes internally
	e.Use(customMiddleware.AuthMiddleware(d.authService))

	// Public Routes (auth middleware will skip these)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/login", authHandler.Login)
	e.POST("/logout", authHandler.Logout)

	// Protected Routes
	api := e.Group("/api")
	api.GET("/buckets", browserHandler.ListBuckets)
	api.GET("/buckets/:bucket/objects", browserHandler.ListObjects)
	api.GET("/buckets/:bucket/search", browserHandler.Search)
	api.POST("/buckets/:bucket/upload", browserHandler.Upload)
	api.POST("/buckets/:bucket/download", browserHandler.Download)
	api.POST("/buckets/:bucket/delete", browserHandler.Delete)

	api.GET("/operations", operationsHandler.ListOperations)
	api.GET("/operations/:id", operationsHandler.GetOperation)

	return e
}
