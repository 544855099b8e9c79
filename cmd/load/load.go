// Package load implements buffered bulk loading of NDJSON documents.
package load

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-buffer/cmd/common"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

const maxLineBytes = 4 << 20

// Inserter buffers documents for a collection.
type Inserter interface {
	Insert(ctx context.Context, collection string, docs ...*document.Document) (domain.BufferStatus, error)
}

// Command returns the load command.
func Command(opts *common.Options) *cobra.Command {
	var (
		threshold int
		create    bool
	)

	cmd := &cobra.Command{
		Use:   "load <index> [file]",
		Short: "Load NDJSON documents through the buffer",
		Long: `Read one JSON object per line from file, or stdin when file is "-" or absent,
and insert each into the buffer for index. Batches are written whenever they
reach the threshold; the remainder is flushed at the end.

Examples:
  index-buffer load articles articles.ndjson
  cat logs.ndjson | index-buffer load logs --threshold 500 --create`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()

			index := args[0]
			return common.Run(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				if threshold > 0 {
					if err = app.Buffered.SetThreshold(threshold); err != nil {
						return err
					}
				}
				if create {
					if _, err = app.Indexes.CreateIndex(ctx, &domain.CreateIndexRequest{IndexName: index}); err != nil {
						return err
					}
				}

				n, loadErr := Load(ctx, in, app.Buffered, index)
				if loadErr != nil {
					return loadErr
				}
				if err = app.Buffered.Flush(ctx, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents into %s\n", n, index)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "batch size (default from config)")
	cmd.Flags().BoolVar(&create, "create", false, "create the index first if it does not exist")
	return cmd
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) < 2 || args[1] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// Load inserts every non-blank line of r into collection and returns how many
// documents were inserted. It stops at the first line that is not a flat
// JSON object or when ctx is done.
func Load(ctx context.Context, r io.Reader, buf Inserter, collection string) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	count := 0
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return count, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		doc, err := document.Decode(raw)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err = buf.Insert(ctx, collection, doc); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("read input: %w", err)
	}
	return count, nil
}
