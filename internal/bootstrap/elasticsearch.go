package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/config"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/retry"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

// ElasticsearchConfig maps the application config onto the client config.
func ElasticsearchConfig(cfg *config.Config) elasticsearch.Config {
	e := cfg.Elasticsearch
	return elasticsearch.Config{
		URL:         e.URL,
		Username:    e.Username,
		Password:    e.Password,
		APIKey:      e.APIKey,
		MaxRetries:  e.MaxRetries,
		Timeout:     e.Timeout,
		PingTimeout: e.PingTimeout,
		PutTimeout:  e.PutTimeout,
		Retry: retry.Config{
			MaxAttempts:  e.Retry.MaxAttempts,
			InitialDelay: e.Retry.InitialDelay,
			MaxDelay:     e.Retry.MaxDelay,
			Multiplier:   e.Retry.Multiplier,
			IsRetryable:  retry.IsTransient,
		},
	}
}

// SetupElasticsearch connects to the cluster.
func SetupElasticsearch(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
	tel *telemetry.Provider,
) (*elasticsearch.Client, error) {
	client, err := elasticsearch.Connect(ctx, ElasticsearchConfig(cfg),
		elasticsearch.WithLogger(log),
		elasticsearch.WithTelemetry(tel),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}
