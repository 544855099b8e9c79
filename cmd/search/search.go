// Package search implements the query commands: query-string search,
// group-by and SQL.
package search

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

const defaultGroupBySize = 10

// Command returns the search command.
func Command(opts *common.Options) *cobra.Command {
	var (
		query     string
		from      int
		size      int
		sortField string
		sortOrder string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <index>",
		Short: "Run a query-string search",
		Long: `Search an index with Lucene query-string syntax.

Examples:
  index-buffer search articles -q 'title:golang'
  index-buffer search articles -q '*' --sort published --order asc -s 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &domain.SearchRequest{
				Index:       args[0],
				QueryString: query,
				From:        from,
				Size:        size,
				SortField:   sortField,
				SortOrder:   sortOrder,
			}
			req.Normalize()

			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Search.Search(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return common.PrintJSON(cmd.OutOrStdout(), result)
				}
				common.RenderHits(cmd.OutOrStdout(), result, req.QueryString)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "*", "query string")
	cmd.Flags().IntVar(&from, "from", domain.DefaultSearchFrom, "offset of the first hit")
	cmd.Flags().IntVarP(&size, "size", "s", domain.DefaultSearchSize, "number of hits")
	cmd.Flags().StringVar(&sortField, "sort", "", "field to sort on")
	cmd.Flags().StringVar(&sortOrder, "order", domain.SortDesc, "sort order (asc or desc)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// GroupByCommand returns the group-by command.
func GroupByCommand(opts *common.Options) *cobra.Command {
	var (
		query string
		size  int
	)

	cmd := &cobra.Command{
		Use:   "group-by <index> <field>",
		Short: "Count matching documents per field value",
		Long: `Run a terms aggregation on field over the documents matching the query.

Examples:
  index-buffer group-by articles author.keyword
  index-buffer group-by logs level -q 'service:api' -s 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.Search.GroupBy(ctx, args[0], args[1], query, size)
				if err != nil {
					return err
				}
				common.RenderGroups(cmd.OutOrStdout(), args[1], items)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "query string restricting the documents")
	cmd.Flags().IntVarP(&size, "size", "s", defaultGroupBySize, "number of buckets")
	return cmd
}

// SQLCommand returns the sql command.
func SQLCommand(opts *common.Options) *cobra.Command {
	var (
		fetchSize int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Run an Elasticsearch SQL query",
		Long: `Pass a query to the Elasticsearch SQL endpoint and print the rows.

Examples:
  index-buffer sql 'SELECT author, COUNT(*) FROM articles GROUP BY author'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Search.SQL(ctx, args[0], fetchSize)
				if err != nil {
					return err
				}
				if asJSON {
					return common.PrintJSON(cmd.OutOrStdout(), result.Records())
				}
				common.RenderSQL(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&fetchSize, "fetch-size", 0, "rows per page (server default when 0)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}
