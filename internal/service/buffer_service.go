package service

import (
	"context"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/buffer"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// BufferService exposes the Batch Buffer to the API and CLI.
type BufferService struct {
	buf *buffer.Buffer
	log logger.Logger
}

// NewBufferService returns a BufferService over buf.
func NewBufferService(buf *buffer.Buffer, log logger.Logger) *BufferService {
	return &BufferService{buf: buf, log: log}
}

// Insert appends docs to the pending batch of collection in order. Automatic
// flushes happen inside the buffer; the returned status reflects the batch
// afterwards.
func (s *BufferService) Insert(ctx context.Context, collection string, docs ...*document.Document) (domain.BufferStatus, error) {
	if err := ValidateIndexName(collection); err != nil {
		return domain.BufferStatus{}, err
	}
	for _, doc := range docs {
		s.buf.Insert(ctx, collection, doc)
	}
	s.log.Debug("Documents buffered",
		logger.String("collection", collection),
		logger.Int("count", len(docs)),
	)
	return s.Status(collection), nil
}

// Flush flushes one collection.
func (s *BufferService) Flush(ctx context.Context, collection string) error {
	if err := ValidateIndexName(collection); err != nil {
		return err
	}
	return s.buf.Flush(ctx, collection)
}

// FlushAll flushes every collection.
func (s *BufferService) FlushAll(ctx context.Context) error {
	return s.buf.FlushAll(ctx)
}

// Status describes the pending batch of collection.
func (s *BufferService) Status(collection string) domain.BufferStatus {
	return domain.BufferStatus{
		Collection: collection,
		Pending:    s.buf.Len(collection),
		Threshold:  s.buf.Threshold(),
	}
}

// Statuses describes every known collection.
func (s *BufferService) Statuses() []domain.BufferStatus {
	names := s.buf.Collections()
	out := make([]domain.BufferStatus, 0, len(names))
	for _, name := range names {
		out = append(out, s.Status(name))
	}
	return out
}

// SetThreshold changes the buffer threshold.
func (s *BufferService) SetThreshold(n int) error {
	if n < 1 {
		return invalid("threshold must be at least 1")
	}
	s.buf.SetThreshold(n)
	s.log.Info("Buffer threshold changed", logger.Int("threshold", n))
	return nil
}
