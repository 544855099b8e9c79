// Package httpd implements the command that runs the HTTP service.
package httpd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
)

// Command returns the httpd command.
func Command(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted. Pending batches are flushed before exit.

Examples:
  index-buffer httpd
  index-buffer httpd --config /etc/index-buffer/config.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := common.NewApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			return bootstrap.Serve(cmd.Context(), app)
		},
	}
}
