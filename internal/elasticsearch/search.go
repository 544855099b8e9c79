package elasticsearch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

const (
	groupByAggName     = "group_by"
	defaultGroupBySize = 10
)

type searchHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Score  *float64       `json:"_score"`
	Source map[string]any `json:"_source"`
}

type termsBucket struct {
	Key         json.RawMessage `json:"key"`
	KeyAsString string          `json:"key_as_string"`
	DocCount    int64           `json:"doc_count"`
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []termsBucket `json:"buckets"`
	} `json:"aggregations"`
}

func queryString(q string) map[string]any {
	if q == "" {
		q = "*"
	}
	return map[string]any{"query_string": map[string]any{"query": q}}
}

func (c *Client) search(ctx context.Context, index string, body map[string]any) (*searchResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(raw)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		c.logFailure("search", index, err)
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %w", index, responseError(res))
	}

	var out searchResponse
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// SearchQueryString runs a query_string query with paging and optional
// sorting. Every hit carries its document id.
func (c *Client) SearchQueryString(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	r := *req
	r.Normalize()

	body := map[string]any{
		"query": queryString(r.QueryString),
		"from":  r.From,
		"size":  r.Size,
	}
	if r.SortField != "" {
		body["sort"] = []any{map[string]any{r.SortField: map[string]any{"order": r.SortOrder}}}
	}

	out, err := c.search(ctx, r.Index, body)
	if err != nil {
		return nil, err
	}

	result := &domain.SearchResult{
		Total:      out.Hits.Total.Value,
		TookMillis: out.Took,
		Hits:       make([]domain.Hit, 0, len(out.Hits.Hits)),
	}
	for _, h := range out.Hits.Hits {
		hit := domain.Hit{Index: h.Index, ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// GroupBy counts documents matching queryString per distinct value of field,
// using a terms aggregation of at most size buckets.
func (c *Client) GroupBy(ctx context.Context, index, field, q string, size int) ([]domain.GroupByItem, error) {
	if size <= 0 {
		size = defaultGroupBySize
	}
	body := map[string]any{
		"size":  0,
		"query": queryString(q),
		"aggs": map[string]any{
			groupByAggName: map[string]any{
				"terms": map[string]any{"field": field, "size": size},
			},
		},
	}

	out, err := c.search(ctx, index, body)
	if err != nil {
		return nil, err
	}

	buckets := out.Aggregations[groupByAggName].Buckets
	items := make([]domain.GroupByItem, 0, len(buckets))
	for _, b := range buckets {
		items = append(items, domain.GroupByItem{Name: bucketName(b), Count: b.DocCount})
	}
	return items, nil
}

func bucketName(b termsBucket) string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	var s string
	if json.Unmarshal(b.Key, &s) == nil {
		return s
	}
	return string(b.Key)
}

// SQLQuery passes query to the _sql endpoint. A fetchSize of zero keeps the
// server default.
func (c *Client) SQLQuery(ctx context.Context, query string, fetchSize int) (*domain.SQLResult, error) {
	body := map[string]any{"query": query}
	if fetchSize > 0 {
		body["fetch_size"] = fetchSize
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal sql body: %w", err)
	}

	res, err := c.es.SQL.Query(bytes.NewReader(raw),
		c.es.SQL.Query.WithContext(ctx),
		c.es.SQL.Query.WithFormat("json"),
	)
	if err != nil {
		c.logFailure("sql", "", err)
		return nil, fmt.Errorf("sql query: %w", err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		return nil, fmt.Errorf("sql query: %w", responseError(res))
	}

	var out domain.SQLResult
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sql response: %w", err)
	}
	return &out, nil
}
