// Package buffer accumulates documents per collection and submits them as one
// bulk write once a threshold is reached or on request.
//
// A pending batch is cleared only after a bulk write that reported no item
// failures. Any other outcome leaves the batch exactly as it was, and nothing
// is retried automatically.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

// DefaultThreshold is the batch length that triggers an automatic flush.
const DefaultThreshold = 100

// BulkWriter submits encoded documents to a collection in one request. A
// transport failure is returned as an error; item rejections are reported in
// the result.
type BulkWriter interface {
	BulkWrite(ctx context.Context, index string, items []domain.BulkItem) (*domain.BulkResult, error)
}

// Buffer is safe for concurrent use. Inserts and flushes for the same
// collection are serialized for the whole read, submit and clear sequence;
// different collections proceed independently.
type Buffer struct {
	writer    BulkWriter
	encoder   document.Encoder
	threshold atomic.Int64
	log       logger.Logger
	telemetry *telemetry.Provider

	mu      sync.Mutex
	batches map[string]*batch
}

type batch struct {
	mu   sync.Mutex
	docs []*document.Document
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithThreshold sets the initial flush threshold.
func WithThreshold(n int) Option {
	return func(b *Buffer) { b.SetThreshold(n) }
}

// WithEncoder selects the payload encoding strategy.
func WithEncoder(enc document.Encoder) Option {
	return func(b *Buffer) {
		if enc != nil {
			b.encoder = enc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Buffer) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTelemetry records metrics and spans through p.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(b *Buffer) { b.telemetry = p }
}

// New returns an empty Buffer writing through w. The JSON encoder and a
// threshold of DefaultThreshold are used unless overridden.
func New(w BulkWriter, opts ...Option) *Buffer {
	b := &Buffer{
		writer:  w,
		encoder: document.JSONEncoder{},
		log:     logger.NewNop(),
		batches: make(map[string]*batch),
	}
	b.threshold.Store(DefaultThreshold)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetThreshold changes the threshold for later inserts. Values below 1 are
// treated as 1. Batches already over the new threshold are not flushed until
// their next insert.
func (b *Buffer) SetThreshold(n int) {
	b.threshold.Store(int64(max(n, 1)))
}

// Threshold returns the current flush threshold.
func (b *Buffer) Threshold() int {
	return int(b.threshold.Load())
}

func (b *Buffer) batchFor(collection string, create bool) *batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	bt, ok := b.batches[collection]
	if !ok && create {
		bt = &batch{}
		b.batches[collection] = bt
	}
	return bt
}

// Insert appends a copy of doc to the pending batch of collection. When the
// batch reaches the threshold it is flushed before Insert returns; a failed
// automatic flush is logged and the batch is kept.
func (b *Buffer) Insert(ctx context.Context, collection string, doc *document.Document) {
	bt := b.batchFor(collection, true)

	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.docs = append(bt.docs, doc.Clone())
	pending := len(bt.docs)
	b.telemetry.RecordInsert(collection, pending)

	if int64(pending) < b.threshold.Load() {
		return
	}

	if err := b.flushLocked(ctx, collection, bt); err != nil {
		b.log.Warn("Automatic flush failed, batch retained",
			logger.String("collection", collection),
			logger.Int("pending", len(bt.docs)),
			logger.Error(err),
		)
	}
}

// Flush submits the pending batch of collection as one bulk write. It returns
// nil without contacting the backend when the batch is absent or empty. On
// success the batch is emptied; otherwise a *FlushError is returned and the
// batch is left untouched.
func (b *Buffer) Flush(ctx context.Context, collection string) error {
	bt := b.batchFor(collection, false)
	if bt == nil {
		b.telemetry.RecordFlush(collection, telemetry.ResultEmpty, 0, 0)
		return nil
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	return b.flushLocked(ctx, collection, bt)
}

// FlushAll flushes every known collection and joins the failures.
func (b *Buffer) FlushAll(ctx context.Context) error {
	var errs []error
	for _, collection := range b.Collections() {
		if err := b.Flush(ctx, collection); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flushLocked requires bt.mu.
func (b *Buffer) flushLocked(ctx context.Context, collection string, bt *batch) error {
	size := len(bt.docs)
	if size == 0 {
		b.telemetry.RecordFlush(collection, telemetry.ResultEmpty, 0, 0)
		return nil
	}

	ctx, span := b.telemetry.StartSpan(ctx, "buffer.flush",
		attribute.String("collection", collection),
		attribute.Int("size", size),
	)
	defer span.End()

	start := time.Now()
	result, err := b.submit(ctx, collection, bt.docs)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")
		b.telemetry.RecordFlush(collection, telemetry.ResultFailure, size, elapsed)
		if result != nil {
			b.telemetry.RecordFailedItems(collection, len(result.Failures))
		}
		return err
	}

	bt.docs = nil
	b.telemetry.RecordFlush(collection, telemetry.ResultSuccess, size, elapsed)
	b.telemetry.SetPending(collection, 0)
	b.log.Debug("Flushed batch",
		logger.String("collection", collection),
		logger.Int("count", size),
		logger.Duration("duration", elapsed),
	)
	return nil
}

// submit returns a *FlushError for every outcome other than full success. The
// returned result is non-nil only when the backend answered.
func (b *Buffer) submit(ctx context.Context, collection string, docs []*document.Document) (*domain.BulkResult, error) {
	items := make([]domain.BulkItem, 0, len(docs))
	for i, doc := range docs {
		payload, err := b.encoder.Encode(doc)
		if err != nil {
			return nil, &FlushError{
				Collection: collection,
				Size:       len(docs),
				Err:        fmt.Errorf("encode document %d: %w", i, err),
			}
		}
		items = append(items, domain.BulkItem{Payload: payload})
	}

	result, err := b.writer.BulkWrite(ctx, collection, items)
	if err != nil {
		return nil, &FlushError{Collection: collection, Size: len(docs), Err: err}
	}
	if result.HasFailures() {
		return result, &FlushError{Collection: collection, Size: len(docs), Result: result}
	}
	return result, nil
}

// Len returns the number of pending documents for collection.
func (b *Buffer) Len(collection string) int {
	bt := b.batchFor(collection, false)
	if bt == nil {
		return 0
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return len(bt.docs)
}

// Pending returns a copy of the pending batch for collection.
func (b *Buffer) Pending(collection string) []*document.Document {
	bt := b.batchFor(collection, false)
	if bt == nil {
		return nil
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()

	out := make([]*document.Document, len(bt.docs))
	for i, d := range bt.docs {
		out[i] = d.Clone()
	}
	return out
}

// Collections returns every collection that has received an insert, sorted.
// Entries stay known after their batch is emptied.
func (b *Buffer) Collections() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.batches))
	for name := range b.batches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
