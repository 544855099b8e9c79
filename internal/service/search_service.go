package service

import (
	"context"
	"strings"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

const maxSearchSize = 10000

// SearchService runs read-only queries.
type SearchService struct {
	client SearchClient
	log    logger.Logger
}

// NewSearchService returns a SearchService.
func NewSearchService(client SearchClient, log logger.Logger) *SearchService {
	return &SearchService{client: client, log: log}
}

// Search runs a query-string search.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	if err := ValidateIndexName(req.Index); err != nil {
		return nil, err
	}
	if req.From+req.Size > maxSearchSize {
		return nil, invalid("from + size must not exceed %d", maxSearchSize)
	}
	s.log.Debug("Searching",
		logger.String("index", req.Index),
		logger.String("query", req.QueryString),
		logger.Int("from", req.From),
		logger.Int("size", req.Size),
	)
	return s.client.SearchQueryString(ctx, req)
}

// GroupBy counts matching documents per value of field.
func (s *SearchService) GroupBy(ctx context.Context, index, field, queryString string, size int) ([]domain.GroupByItem, error) {
	if err := ValidateIndexName(index); err != nil {
		return nil, err
	}
	if strings.TrimSpace(field) == "" {
		return nil, invalid("group-by field is required")
	}
	return s.client.GroupBy(ctx, index, field, queryString, size)
}

// SQL passes query through to the SQL endpoint.
func (s *SearchService) SQL(ctx context.Context, query string, fetchSize int) (*domain.SQLResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalid("sql query is required")
	}
	if fetchSize < 0 {
		return nil, invalid("fetch size must not be negative")
	}
	return s.client.SQLQuery(ctx, query, fetchSize)
}
