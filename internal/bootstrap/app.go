// Package bootstrap wires configuration, logging, Elasticsearch, the optional
// index registry, the buffer and the services for the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/buffer"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/config"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/database"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/service"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Telemetry *telemetry.Provider
	ES        *elasticsearch.Client
	DB        *database.Connection
	Buffer    *buffer.Buffer

	Indexes   *service.IndexService
	Documents *service.DocumentService
	Search    *service.SearchService
	Buffered  *service.BufferService
}

// NewApp loads the configuration at path and wires every component.
// Phases run in order: config, logger, Elasticsearch, database, services.
func NewApp(ctx context.Context, path string) (*App, error) {
	// Phase 1: config and logger
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return Wire(ctx, cfg, log)
}

// Wire builds the App from an already loaded configuration.
func Wire(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    log,
		Telemetry: telemetry.NewProvider(),
	}

	// Phase 2: Elasticsearch
	esClient, err := SetupElasticsearch(ctx, cfg, log, app.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to setup Elasticsearch: %w", err)
	}
	app.ES = esClient

	// Phase 3: index registry
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	app.DB = db

	// Phase 4: buffer and services
	if err = app.setupServices(); err != nil {
		app.closeDB()
		return nil, err
	}
	return app, nil
}

func (a *App) setupServices() error {
	enc, err := document.NewEncoder(a.Config.Buffer.Encoder)
	if err != nil {
		return fmt.Errorf("buffer encoder: %w", err)
	}

	a.Buffer = buffer.New(a.ES,
		buffer.WithThreshold(a.Config.Buffer.Threshold),
		buffer.WithEncoder(enc),
		buffer.WithLogger(a.Logger),
		buffer.WithTelemetry(a.Telemetry),
	)

	// A nil *Connection must not reach the service as a non-nil interface.
	var store service.MetadataStore
	if a.DB != nil {
		store = a.DB
	}

	a.Indexes = service.NewIndexService(a.ES, store, a.Logger)
	a.Documents = service.NewDocumentService(a.ES, enc, a.Logger)
	a.Search = service.NewSearchService(a.ES, a.Logger)
	a.Buffered = service.NewBufferService(a.Buffer, a.Logger)

	a.Logger.Info("Buffer ready",
		logger.Int("threshold", a.Buffer.Threshold()),
		logger.String("encoder", a.Config.Buffer.Encoder),
	)
	return nil
}

// Close flushes every pending batch, then releases the database and the
// logger. A failed flush is reported but does not stop the rest of shutdown.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Buffer != nil {
		if err := a.Buffer.FlushAll(ctx); err != nil {
			a.Logger.Error("Failed to flush pending documents on shutdown", logger.Error(err))
			errs = append(errs, err)
		}
	}
	if err := a.closeDB(); err != nil {
		errs = append(errs, err)
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", logger.Error(err))
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
