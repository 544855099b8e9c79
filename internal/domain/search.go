package domain

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Paging defaults for query-string search.
const (
	DefaultSearchFrom = 0
	DefaultSearchSize = 100
)

// SearchRequest is a query-string search against one index.
type SearchRequest struct {
	Index       string `json:"index"`
	QueryString string `json:"query"`
	From        int    `json:"from"`
	Size        int    `json:"size"`
	SortField   string `json:"sort_field,omitempty"`
	SortOrder   string `json:"sort_order,omitempty"`
}

// Normalize applies paging defaults and a valid sort order.
func (r *SearchRequest) Normalize() {
	if r.QueryString == "" {
		r.QueryString = "*"
	}
	if r.From < 0 {
		r.From = DefaultSearchFrom
	}
	if r.Size <= 0 {
		r.Size = DefaultSearchSize
	}
	if r.SortOrder != SortAsc {
		r.SortOrder = SortDesc
	}
}

// Hit is one stored document together with its backend id.
type Hit struct {
	Index  string         `json:"index"`
	ID     string         `json:"id"`
	Score  float64        `json:"score,omitempty"`
	Source map[string]any `json:"source"`
}

// SearchResult is one page of hits.
type SearchResult struct {
	Total      int64 `json:"total"`
	TookMillis int64 `json:"took_ms"`
	Hits       []Hit `json:"hits"`
}

// GroupByItem is one bucket of a terms aggregation.
type GroupByItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// SQLColumn describes one column of an SQL result.
type SQLColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SQLResult is the tabular answer of an SQL query.
type SQLResult struct {
	Columns []SQLColumn `json:"columns"`
	Rows    [][]any     `json:"rows"`
	Cursor  string      `json:"cursor,omitempty"`
}

// Records returns each row keyed by column name.
func (r *SQLResult) Records() []map[string]any {
	if r == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col.Name] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}
