// Package common provides the dependencies shared by the CLI commands.
package common

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
)

// Options holds the persistent root flags.
type Options struct {
	ConfigPath string
	Debug      bool
}

// NewApp loads the configuration and wires the application for a command.
// Short-lived commands log to stderr so stdout carries only their output.
func NewApp(ctx context.Context, opts *Options, server bool) (*bootstrap.App, error) {
	cfg, err := bootstrap.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Debug {
		cfg.Service.Debug = true
	}
	if !server {
		cfg.Logging.OutputPaths = []string{"stderr"}
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app, err := bootstrap.Wire(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return app, nil
}

// Run wires the application, calls fn and closes the application. Close
// flushes pending batches, so its error is returned when fn succeeds.
func Run(ctx context.Context, opts *Options, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := NewApp(ctx, opts, false)
	if err != nil {
		return err
	}

	runErr := fn(ctx, app)
	closeErr := app.Close(ctx)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
