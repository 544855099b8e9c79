package elasticsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

type writeResponse struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type getResponse struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Found  bool           `json:"found"`
	Source map[string]any `json:"_source"`
}

// PutDocument stores one JSON payload. An empty id lets Elasticsearch assign
// one; the stored id is returned. The call is bounded by the put timeout.
func (c *Client) PutDocument(ctx context.Context, index, id string, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.putTimeout)
	defer cancel()

	opts := []func(*esapi.IndexRequest){c.es.Index.WithContext(ctx)}
	if id != "" {
		opts = append(opts, c.es.Index.WithDocumentID(id))
	}
	if c.refresh != "" {
		opts = append(opts, c.es.Index.WithRefresh(c.refresh))
	}

	res, err := c.es.Index(index, bytes.NewReader(payload), opts...)
	if err != nil {
		c.logFailure("put_document", index, err)
		return "", fmt.Errorf("put document into %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		return "", fmt.Errorf("put document into %s: %w", index, responseError(res))
	}

	var out writeResponse
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode put response: %w", err)
	}

	c.log.Debug("Document stored",
		logger.String("index", index),
		logger.String("document_id", out.ID),
		logger.String("result", out.Result),
	)
	return out.ID, nil
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(ctx context.Context, index, id string) (*domain.Hit, error) {
	res, err := c.es.Get(index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", index, id, err)
	}
	defer c.closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		rerr := responseError(res)
		if errors.Is(rerr, ErrIndexNotFound) {
			return nil, fmt.Errorf("get document %s/%s: %w", index, id, rerr)
		}
		return nil, fmt.Errorf("get document %s/%s: %w", index, id, ErrDocumentNotFound)
	}
	if res.IsError() {
		return nil, fmt.Errorf("get document %s/%s: %w", index, id, responseError(res))
	}

	var out getResponse
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !out.Found {
		return nil, fmt.Errorf("get document %s/%s: %w", index, id, ErrDocumentNotFound)
	}
	return &domain.Hit{Index: out.Index, ID: out.ID, Source: out.Source}, nil
}

// UpdateDocument merges the fields of payload into an existing document.
func (c *Client) UpdateDocument(ctx context.Context, index, id string, payload []byte) error {
	body := make([]byte, 0, len(payload)+8)
	body = append(body, `{"doc":`...)
	body = append(body, payload...)
	body = append(body, '}')

	opts := []func(*esapi.UpdateRequest){c.es.Update.WithContext(ctx)}
	if c.refresh != "" {
		opts = append(opts, c.es.Update.WithRefresh(c.refresh))
	}

	res, err := c.es.Update(index, id, bytes.NewReader(body), opts...)
	if err != nil {
		c.logFailure("update_document", index, err)
		return fmt.Errorf("update document %s/%s: %w", index, id, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		rerr := responseError(res)
		if res.StatusCode == http.StatusNotFound && !errors.Is(rerr, ErrIndexNotFound) {
			return fmt.Errorf("update document %s/%s: %w", index, id, ErrDocumentNotFound)
		}
		return fmt.Errorf("update document %s/%s: %w", index, id, rerr)
	}
	return nil
}

// DeleteDocument removes one document. It returns true only when Elasticsearch
// reports the document as deleted; a missing document is false without error.
func (c *Client) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	opts := []func(*esapi.DeleteRequest){c.es.Delete.WithContext(ctx)}
	if c.refresh != "" {
		opts = append(opts, c.es.Delete.WithRefresh(c.refresh))
	}

	res, err := c.es.Delete(index, id, opts...)
	if err != nil {
		c.logFailure("delete_document", index, err)
		return false, fmt.Errorf("delete document %s/%s: %w", index, id, err)
	}
	defer c.closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		var out writeResponse
		if json.NewDecoder(res.Body).Decode(&out) == nil && out.Result == "not_found" {
			return false, nil
		}
		return false, fmt.Errorf("delete document %s/%s: %w", index, id, ErrIndexNotFound)
	}
	if res.IsError() {
		return false, fmt.Errorf("delete document %s/%s: %w", index, id, responseError(res))
	}

	var out writeResponse
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode delete response: %w", err)
	}
	return out.Result == "deleted", nil
}
