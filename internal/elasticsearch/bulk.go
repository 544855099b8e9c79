package elasticsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// ErrEmptyPayload is returned for a bulk item without a document body.
var ErrEmptyPayload = errors.New("empty bulk item payload")

type bulkMeta struct {
	ID string `json:"_id,omitempty"`
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkItemResult struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

type bulkResponse struct {
	Took   int64                       `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

// encodeBulkBody writes one "index" action line and one source line per item.
func encodeBulkBody(items []domain.BulkItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, it := range items {
		if len(bytes.TrimSpace(it.Payload)) == 0 {
			return nil, fmt.Errorf("item %d: %w", i, ErrEmptyPayload)
		}
		if err := enc.Encode(bulkAction{Index: bulkMeta{ID: it.ID}}); err != nil {
			return nil, fmt.Errorf("encode action %d: %w", i, err)
		}
		buf.Write(bytes.TrimRight(it.Payload, "\r\n"))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// BulkWrite indexes items into index in one request. Failing to get an answer,
// or a non-2xx answer, is returned as an error. Items rejected inside a 2xx
// answer are listed in the result.
func (c *Client) BulkWrite(ctx context.Context, index string, items []domain.BulkItem) (*domain.BulkResult, error) {
	if len(items) == 0 {
		return &domain.BulkResult{}, nil
	}

	ctx, span := c.telemetry.StartSpan(ctx, "elasticsearch.bulk",
		attribute.String("index", index),
		attribute.Int("items", len(items)),
	)
	defer span.End()

	body, err := encodeBulkBody(items)
	if err != nil {
		return nil, err
	}

	opts := []func(*esapi.BulkRequest){
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	}
	if c.refresh != "" {
		opts = append(opts, c.es.Bulk.WithRefresh(c.refresh))
	}

	start := time.Now()
	res, err := c.es.Bulk(bytes.NewReader(body), opts...)
	if err != nil {
		c.telemetry.RecordBulkRequest("error", time.Since(start))
		c.logFailure("bulk", index, err)
		span.RecordError(err)
		return nil, fmt.Errorf("bulk write to %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		c.telemetry.RecordBulkRequest("error", time.Since(start))
		rerr := responseError(res)
		span.RecordError(rerr)
		return nil, fmt.Errorf("bulk write to %s: %w", index, rerr)
	}

	var out bulkResponse
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		c.telemetry.RecordBulkRequest("error", time.Since(start))
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}

	result := toBulkResult(index, len(items), &out)
	outcome := "ok"
	if result.HasFailures() {
		outcome = "partial"
		c.log.Warn("Bulk write rejected items",
			logger.String("index", index),
			logger.Int("count", len(items)),
			logger.Int("failed", len(result.Failures)),
			logger.String("first_reason", result.Failures[0].Reason),
		)
	}
	c.telemetry.RecordBulkRequest(outcome, time.Since(start))
	return result, nil
}

func toBulkResult(index string, n int, out *bulkResponse) *domain.BulkResult {
	result := &domain.BulkResult{TookMillis: out.Took, Items: n}
	for pos, entry := range out.Items {
		for _, item := range entry {
			if item.Error == nil && item.Status < 300 {
				continue
			}
			failure := domain.ItemFailure{
				Position: pos,
				Index:    item.Index,
				ID:       item.ID,
				Status:   item.Status,
			}
			if failure.Index == "" {
				failure.Index = index
			}
			if item.Error != nil {
				failure.Type = item.Error.Type
				failure.Reason = item.Error.Reason
			}
			result.Failures = append(result.Failures, failure)
		}
	}
	// errors=true without a per-item error still counts as a rejection.
	if out.Errors && len(result.Failures) == 0 {
		result.Failures = append(result.Failures, domain.ItemFailure{
			Position: -1, Index: index, Reason: "bulk response reported errors",
		})
	}
	return result
}
