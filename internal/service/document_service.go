package service

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// DocumentService writes and reads single documents and unbuffered batches.
type DocumentService struct {
	client  SearchClient
	encoder document.Encoder
	log     logger.Logger
}

// NewDocumentService returns a DocumentService encoding with enc.
func NewDocumentService(client SearchClient, enc document.Encoder, log logger.Logger) *DocumentService {
	return &DocumentService{client: client, encoder: enc, log: log}
}

// Put stores doc under id, or under a generated id when id is empty.
func (s *DocumentService) Put(ctx context.Context, index, id string, doc *document.Document) (string, error) {
	if err := ValidateIndexName(index); err != nil {
		return "", err
	}
	payload, err := s.encoder.Encode(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	storedID, err := s.client.PutDocument(ctx, index, id, payload)
	if err != nil {
		return "", fmt.Errorf("put document: %w", err)
	}
	s.log.Debug("Document stored", logger.String("index", index), logger.String("document_id", storedID))
	return storedID, nil
}

// PutMany writes docs in one bulk request without buffering.
func (s *DocumentService) PutMany(ctx context.Context, index string, docs []*document.Document) (*domain.BulkResult, error) {
	if err := ValidateIndexName(index); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, invalid("no documents")
	}

	items := make([]domain.BulkItem, 0, len(docs))
	for i, doc := range docs {
		payload, err := s.encoder.Encode(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidInput, i, err)
		}
		items = append(items, domain.BulkItem{Payload: payload})
	}

	result, err := s.client.BulkWrite(ctx, index, items)
	if err != nil {
		return nil, fmt.Errorf("bulk write: %w", err)
	}
	s.log.Info("Bulk write completed",
		logger.String("index", index),
		logger.Int("count", len(items)),
		logger.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// Get fetches a document.
func (s *DocumentService) Get(ctx context.Context, index, id string) (*domain.Hit, error) {
	if err := ValidateIndexName(index); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.client.GetDocument(ctx, index, id)
}

// Update merges the fields of doc into the stored document.
func (s *DocumentService) Update(ctx context.Context, index, id string, doc *document.Document) error {
	if err := ValidateIndexName(index); err != nil {
		return err
	}
	if err := requireID(id); err != nil {
		return err
	}
	if doc.Len() == 0 {
		return invalid("update needs at least one field")
	}
	payload, err := s.encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.client.UpdateDocument(ctx, index, id, payload)
}

// Delete removes a document and reports whether it existed.
func (s *DocumentService) Delete(ctx context.Context, index, id string) (bool, error) {
	if err := ValidateIndexName(index); err != nil {
		return false, err
	}
	if err := requireID(id); err != nil {
		return false, err
	}
	deleted, err := s.client.DeleteDocument(ctx, index, id)
	if err != nil {
		return false, err
	}
	s.log.Debug("Document delete",
		logger.String("index", index),
		logger.String("document_id", id),
		logger.Bool("deleted", deleted),
	)
	return deleted, nil
}
