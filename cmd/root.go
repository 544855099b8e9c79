// Package cmd implements the index-buffer command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/cmd/doc"
	"github.com/jonesrussell/north-cloud/index-buffer/cmd/httpd"
	"github.com/jonesrussell/north-cloud/index-buffer/cmd/index"
	"github.com/jonesrussell/north-cloud/index-buffer/cmd/load"
	"github.com/jonesrussell/north-cloud/index-buffer/cmd/search"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &common.Options{}

	root := &cobra.Command{
		Use:           "index-buffer",
		Short:         "Buffered bulk indexing into Elasticsearch",
		Long:          `index-buffer batches documents per index and writes them to Elasticsearch in bulk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	root.AddCommand(
		httpd.Command(opts),
		index.Command(opts),
		doc.Command(opts),
		load.Command(opts),
		search.Command(opts),
		search.GroupByCommand(opts),
		search.SQLCommand(opts),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "index-buffer version %s\n", Version)
		},
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
