package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// MetadataStore records index lifecycle events.
type MetadataStore interface {
	SaveIndexMetadata(ctx context.Context, name, status string) (*domain.IndexMetadata, error)
	GetIndexMetadata(ctx context.Context, name string) (*domain.IndexMetadata, error)
	ListIndexMetadata(ctx context.Context, status string) ([]*domain.IndexMetadata, error)
}

// ErrRegistryDisabled is returned by registry reads when no metadata store is
// configured.
var ErrRegistryDisabled = errors.New("index registry disabled")

// IndexService manages index lifecycle.
type IndexService struct {
	client SearchClient
	store  MetadataStore
	log    logger.Logger
}

// NewIndexService returns an IndexService. store may be nil.
func NewIndexService(client SearchClient, store MetadataStore, log logger.Logger) *IndexService {
	return &IndexService{client: client, store: store, log: log}
}

// CreateIndex creates the index unless it exists and reports whether it did.
func (s *IndexService) CreateIndex(ctx context.Context, req *domain.CreateIndexRequest) (bool, error) {
	if err := ValidateIndexName(req.IndexName); err != nil {
		return false, err
	}

	created, err := s.client.CreateIndex(ctx, req.IndexName, req.Body)
	if err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	if !created {
		s.log.Debug("Index already exists", logger.String("index", req.IndexName))
		return false, nil
	}

	s.record(ctx, req.IndexName, domain.IndexStatusActive)
	return true, nil
}

// IndexExists reports whether the index exists.
func (s *IndexService) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateIndexName(name); err != nil {
		return false, err
	}
	return s.client.IndexExists(ctx, name)
}

// DeleteIndex removes the index.
func (s *IndexService) DeleteIndex(ctx context.Context, name string) error {
	if err := ValidateIndexName(name); err != nil {
		return err
	}
	if err := s.client.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	s.record(ctx, name, domain.IndexStatusDeleted)
	return nil
}

// ListIndexes returns registry rows, optionally filtered by status.
func (s *IndexService) ListIndexes(ctx context.Context, status string) ([]*domain.IndexMetadata, error) {
	if s.store == nil {
		return nil, ErrRegistryDisabled
	}
	switch status {
	case "", domain.IndexStatusActive, domain.IndexStatusDeleted:
	default:
		return nil, invalid("unknown index status %q", status)
	}
	return s.store.ListIndexMetadata(ctx, status)
}

// IndexMetadata returns the registry row for name.
func (s *IndexService) IndexMetadata(ctx context.Context, name string) (*domain.IndexMetadata, error) {
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrRegistryDisabled
	}
	return s.store.GetIndexMetadata(ctx, name)
}

// record is best effort: the index operation already succeeded.
func (s *IndexService) record(ctx context.Context, name, status string) {
	if s.store == nil {
		return
	}
	if _, err := s.store.SaveIndexMetadata(ctx, name, status); err != nil {
		s.log.Warn("Failed to record index metadata",
			logger.String("index", name),
			logger.String("status", status),
			logger.Error(err),
		)
	}
}
