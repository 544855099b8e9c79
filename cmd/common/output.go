package common

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

const (
	maxCellWidth = 60
	maxColumns   = 6
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderHits prints search hits with their backend id and up to a few source
// fields, ordered by name.
func RenderHits(w io.Writer, result *domain.SearchResult, query string) {
	t := newTable(w)

	columns := hitColumns(result.Hits)
	header := table.Row{"#", "ID"}
	configs := []table.ColumnConfig{}
	for i, col := range columns {
		header = append(header, col)
		configs = append(configs, table.ColumnConfig{Number: i + 3, WidthMax: maxCellWidth})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for i, hit := range result.Hits {
		row := table.Row{i + 1, hit.ID}
		for _, col := range columns {
			row = append(row, cell(hit.Source[col]))
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"Total", result.Total, fmt.Sprintf("Query: %s", query)})
	t.Render()
}

func hitColumns(hits []domain.Hit) []string {
	seen := make(map[string]struct{})
	for _, h := range hits {
		for k := range h.Source {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	return cols
}

// RenderGroups prints group-by buckets.
func RenderGroups(w io.Writer, field string, items []domain.GroupByItem) {
	t := newTable(w)
	t.AppendHeader(table.Row{field, "Count"})
	var total int64
	for _, it := range items {
		t.AppendRow(table.Row{it.Name, it.Count})
		total += it.Count
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
}

// RenderSQL prints an SQL result set.
func RenderSQL(w io.Writer, result *domain.SQLResult) {
	t := newTable(w)
	header := make(table.Row, 0, len(result.Columns))
	for _, col := range result.Columns {
		header = append(header, col.Name)
	}
	t.AppendHeader(header)
	for _, r := range result.Rows {
		row := make(table.Row, 0, len(r))
		for _, v := range r {
			row = append(row, cell(v))
		}
		t.AppendRow(row)
	}
	t.Render()
}

// RenderBuffer prints buffer statuses.
func RenderBuffer(w io.Writer, statuses []domain.BufferStatus) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Collection", "Pending", "Threshold"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s.Collection, s.Pending, s.Threshold})
	}
	t.Render()
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	s := strings.Join(strings.Fields(fmt.Sprint(v)), " ")
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}
