// Package doc implements the single-document commands.
package doc

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
)

// Command returns the doc command group.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Store, fetch, update and delete single documents",
		Long: `Fields are given as name=value. null, true, false and numbers are typed;
wrap a value in double quotes to keep it as text.

Examples:
  index-buffer doc put articles title=hello views=3
  index-buffer doc put articles --id a1 title='"42"'
  index-buffer doc update articles a1 views=4`,
	}
	cmd.AddCommand(putCommand(opts), getCommand(opts), updateCommand(opts), deleteCommand(opts))
	return cmd
}

func putCommand(opts *common.Options) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "put <index> <name=value>...",
		Short: "Store a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := common.ParseFields(args[1:])
			if err != nil {
				return err
			}
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				stored, putErr := app.Documents.Put(ctx, args[0], id, d)
				if putErr != nil {
					return putErr
				}
				fmt.Fprintln(cmd.OutOrStdout(), stored)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "document id (generated when empty)")
	return cmd
}

func getCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index> <id>",
		Short: "Fetch a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				hit, err := app.Documents.Get(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return common.PrintJSON(cmd.OutOrStdout(), hit)
			})
		},
	}
}

func updateCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "update <index> <id> <name=value>...",
		Short: "Merge fields into a stored document",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := common.ParseFields(args[2:])
			if err != nil {
				return err
			}
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				if updErr := app.Documents.Update(ctx, args[0], args[1], d); updErr != nil {
					return updErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func deleteCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				deleted, err := app.Documents.Delete(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s not found\n", args[0], args[1])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}
