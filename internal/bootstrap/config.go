package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/config"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// LoadConfig loads and validates the configuration. An empty path falls back
// to CONFIG_PATH and then config.yml.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Path(config.DefaultPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CreateLogger builds the service logger. Debug mode forces debug level.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := cfg.Logging
	if cfg.Service.Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}
