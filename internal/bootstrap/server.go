package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/api"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/server"
)

// SetupHTTPServer builds the HTTP server with the API, health and metrics routes.
func SetupHTTPServer(app *App) *server.Server {
	cfg := app.Config
	handler := api.NewHandler(app.Indexes, app.Documents, app.Search, app.Buffered, app.Logger)

	checks := map[string]server.Check{
		"elasticsearch": func(ctx context.Context) error {
			return app.ES.Ping(ctx, cfg.Elasticsearch.PingTimeout)
		},
	}
	if app.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			return app.DB.DB.PingContext(ctx)
		}
	}

	serverCfg := server.Config{
		Port:            cfg.Service.Port,
		ServiceName:     cfg.Service.Name,
		ServiceVersion:  cfg.Service.Version,
		Debug:           cfg.Service.Debug,
		ShutdownTimeout: cfg.Service.ShutdownTimeout,
	}

	return server.NewServer(serverCfg, app.Logger, func(router *gin.Engine) {
		server.RegisterHealthRoutes(router, cfg.Service.Name, cfg.Service.Version, checks)
		api.SetupRoutes(router, handler, app.Telemetry.Handler())
	})
}

// Start loads the configuration at path and runs the HTTP service.
func Start(ctx context.Context, path string) error {
	app, err := NewApp(ctx, path)
	if err != nil {
		return err
	}
	return Serve(ctx, app)
}

// Serve runs the HTTP service until ctx is cancelled or a shutdown signal
// arrives, then flushes every pending batch and closes app.
func Serve(ctx context.Context, app *App) error {
	app.Logger.Info("Starting index buffer service",
		logger.String("version", app.Config.Service.Version),
		logger.Int("port", app.Config.Service.Port),
	)

	srv := SetupHTTPServer(app)
	runErr := srv.Run(ctx)
	if runErr != nil {
		app.Logger.Error("Server error", logger.Error(runErr))
	}

	app.Logger.Info("Index buffer service stopping")

	// Flush with a fresh context: ctx may already be cancelled.
	closeCtx, cancel := context.WithTimeout(context.Background(), app.Config.Service.ShutdownTimeout)
	defer cancel()
	closeErr := app.Close(closeCtx)

	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("shutdown: %w", closeErr)
	}
	return nil
}
