// Package index implements the index lifecycle commands.
package index

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

// Command returns the index command group.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create, inspect and delete indexes",
	}
	cmd.AddCommand(createCommand(opts), existsCommand(opts), deleteCommand(opts), listCommand(opts), infoCommand(opts))
	return cmd
}

func createCommand(opts *common.Options) *cobra.Command {
	var bodyFile string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an index",
		Long: `Create an index, optionally with a settings/mappings body read from a JSON file.

Examples:
  index-buffer index create articles
  index-buffer index create articles --body mappings.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &domain.CreateIndexRequest{IndexName: args[0]}
			if bodyFile != "" {
				body, err := readBody(bodyFile)
				if err != nil {
					return err
				}
				req.Body = body
			}

			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				created, err := app.Indexes.CreateIndex(ctx, req)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", req.IndexName)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", req.IndexName)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&bodyFile, "body", "b", "", "JSON file with index settings and mappings")
	return cmd
}

func readBody(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index body: %w", err)
	}
	var body map[string]any
	if err = json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse index body: %w", err)
	}
	return body, nil
}

func existsCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <name>",
		Short: "Report whether an index exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				exists, err := app.Indexes.IndexExists(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), exists)
				return nil
			})
		},
	}
}

func deleteCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Indexes.DeleteIndex(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func listCommand(opts *common.Options) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes recorded in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				rows, err := app.Indexes.ListIndexes(ctx, status)
				if err != nil {
					return err
				}
				return common.PrintJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active or deleted)")
	return cmd
}

func infoCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <index>",
		Short: "Show the registry entry for an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				meta, err := app.Indexes.IndexMetadata(ctx, args[0])
				if err != nil {
					return err
				}
				return common.PrintJSON(cmd.OutOrStdout(), meta)
			})
		},
	}
}
