package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/config"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/database"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// DatabaseConfig maps the application config onto the connection config.
func DatabaseConfig(cfg *config.Config) *database.Config {
	d := cfg.Database
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxConnections:  d.MaxConnections,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnectionMaxLifetime,
	}
}

// SetupDatabase opens the index registry and applies its schema. It returns
// nil when the registry is disabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.Connection, error) {
	if !cfg.Database.Enabled {
		log.Info("Index registry disabled")
		return nil, nil //nolint:nilnil // disabled registry
	}

	db, err := database.NewConnection(ctx, DatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	if err = db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database migrate: %w", err)
	}

	log.Info("Index registry connected",
		logger.String("host", cfg.Database.Host),
		logger.String("database", cfg.Database.Database),
	)
	return db, nil
}
