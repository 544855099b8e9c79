// Package service holds the validation and logging layer between the HTTP
// API / CLI and the search client and buffer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

// ErrInvalidInput marks caller mistakes.
var ErrInvalidInput = errors.New("invalid input")

// SearchClient is the part of the Elasticsearch client used by the services.
type SearchClient interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body map[string]any) (bool, error)
	DeleteIndex(ctx context.Context, index string) error

	PutDocument(ctx context.Context, index, id string, payload []byte) (string, error)
	GetDocument(ctx context.Context, index, id string) (*domain.Hit, error)
	UpdateDocument(ctx context.Context, index, id string, payload []byte) error
	DeleteDocument(ctx context.Context, index, id string) (bool, error)
	BulkWrite(ctx context.Context, index string, items []domain.BulkItem) (*domain.BulkResult, error)

	SearchQueryString(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)
	GroupBy(ctx context.Context, index, field, queryString string, size int) ([]domain.GroupByItem, error)
	SQLQuery(ctx context.Context, query string, fetchSize int) (*domain.SQLResult, error)
}

// invalid wraps ErrInvalidInput with a message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

const maxIndexNameBytes = 255

// ValidateIndexName applies Elasticsearch index naming rules.
func ValidateIndexName(name string) error {
	switch {
	case name == "":
		return invalid("index name is required")
	case name == "." || name == "..":
		return invalid("index name %q is reserved", name)
	case len(name) > maxIndexNameBytes:
		return invalid("index name longer than %d bytes", maxIndexNameBytes)
	case strings.ContainsAny(name[:1], "-_+"):
		return invalid("index name %q must not start with '-', '_' or '+'", name)
	case strings.ContainsAny(name, `\/*?"<>| ,#:`):
		return invalid("index name %q contains a forbidden character", name)
	case strings.ToLower(name) != name:
		return invalid("index name %q must be lowercase", name)
	}
	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("document id is required")
	}
	return nil
}
