package elasticsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// IndexExists reports whether index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("check index %s: %w", index, responseError(res))
	}
	return true, nil
}

// CreateIndex creates index with an optional settings/mappings body. It
// returns false without error when the index already exists.
func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]any) (bool, error) {
	exists, err := c.IndexExists(ctx, index)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	var reader io.Reader
	if len(body) > 0 {
		raw, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return false, fmt.Errorf("marshal index body: %w", marshalErr)
		}
		reader = bytes.NewReader(raw)
	}

	res, err := c.es.Indices.Create(index,
		c.es.Indices.Create.WithBody(reader),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		c.logFailure("create_index", index, err)
		return false, fmt.Errorf("create index %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		rerr := responseError(res)
		if rerr.Type == typeAlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", index, rerr)
	}

	c.log.Info("Index created", logger.String("index", index))
	return true, nil
}

// DeleteIndex removes index. A missing index yields ErrIndexNotFound.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Delete([]string{index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		c.logFailure("delete_index", index, err)
		return fmt.Errorf("delete index %s: %w", index, err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		rerr := responseError(res)
		if res.StatusCode == http.StatusNotFound && !errors.Is(rerr, ErrIndexNotFound) {
			return fmt.Errorf("delete index %s: %w: %w", index, ErrIndexNotFound, rerr)
		}
		return fmt.Errorf("delete index %s: %w", index, rerr)
	}

	c.log.Info("Index deleted", logger.String("index", index))
	return nil
}
