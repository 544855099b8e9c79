package buffer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/buffer"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

type bulkCall struct {
	index    string
	payloads []string
}

// fakeWriter records bulk writes and answers with a configurable outcome.
type fakeWriter struct {
	mu       sync.Mutex
	calls    []bulkCall
	err      error
	rejectAt []int

	// entered receives one value per call when non-nil; release gates the answer.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeWriter) BulkWrite(_ context.Context, index string, items []domain.BulkItem) (*domain.BulkResult, error) {
	payloads := make([]string, len(items))
	for i, it := range items {
		payloads[i] = string(it.Payload)
	}

	f.mu.Lock()
	f.calls = append(f.calls, bulkCall{index: index, payloads: payloads})
	err, rejectAt := f.err, f.rejectAt
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	if err != nil {
		return nil, err
	}
	res := &domain.BulkResult{Items: len(items)}
	for _, pos := range rejectAt {
		res.Failures = append(res.Failures, domain.ItemFailure{
			Position: pos, Index: index, Status: 400, Type: "mapper_parsing_exception",
		})
	}
	return res, nil
}

func (f *fakeWriter) Calls() []bulkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bulkCall(nil), f.calls...)
}

func (f *fakeWriter) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func doc(name string, v document.Value) *document.Document {
	return document.New(document.F(name, v))
}

func TestInsert_ThresholdTriggersSingleFlush(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(3))
	ctx := context.Background()

	b.Insert(ctx, "c", doc("a", document.Int(1)))
	b.Insert(ctx, "c", doc("a", document.Int(2)))
	assert.Equal(t, 2, b.Len("c"))
	assert.Empty(t, w.Calls())

	b.Insert(ctx, "c", doc("a", document.Int(3)))

	calls := w.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "c", calls[0].index)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`}, calls[0].payloads)
	assert.Equal(t, 0, b.Len("c"))
	assert.Equal(t, []string{"c"}, b.Collections())
}

func TestInsert_BelowThresholdNeverWrites(t *testing.T) {
	t.Parallel()

	for _, threshold := range []int{1, 2, 5, 100} {
		w := &fakeWriter{}
		b := buffer.New(w, buffer.WithThreshold(threshold))
		for i := range threshold - 1 {
			b.Insert(context.Background(), "c", doc("i", document.Int(int64(i))))
		}
		assert.Empty(t, w.Calls(), "threshold %d", threshold)
		assert.Equal(t, threshold-1, b.Len("c"))
	}
}

func TestInsert_ExactlyThresholdDocumentsFlushOnce(t *testing.T) {
	t.Parallel()

	for _, threshold := range []int{1, 4, 50} {
		w := &fakeWriter{}
		b := buffer.New(w, buffer.WithThreshold(threshold))
		for i := range threshold {
			b.Insert(context.Background(), "c", doc("i", document.Int(int64(i))))
		}
		calls := w.Calls()
		require.Len(t, calls, 1, "threshold %d", threshold)
		assert.Len(t, calls[0].payloads, threshold)
		assert.Equal(t, 0, b.Len("c"))
	}
}

func TestInsert_FailedAutoFlushRetainsBatch(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{err: errors.New("connection refused")}
	b := buffer.New(w, buffer.WithThreshold(2))
	ctx := context.Background()

	b.Insert(ctx, "c", doc("x", document.String("y")))
	b.Insert(ctx, "c", doc("x", document.String("y")))

	require.Len(t, w.Calls(), 1)
	pending := b.Pending("c")
	require.Len(t, pending, 2)
	for _, d := range pending {
		assert.True(t, d.Equal(doc("x", document.String("y"))))
	}

	err := b.Flush(ctx, "c")
	require.ErrorIs(t, err, buffer.ErrFlushFailed)
	assert.Equal(t, 2, b.Len("c"))
}

func TestInsert_FailedBatchKeepsGrowingAndRetriesOnEachInsert(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{err: errors.New("timeout")}
	b := buffer.New(w, buffer.WithThreshold(2))
	ctx := context.Background()

	for i := range 4 {
		b.Insert(ctx, "c", doc("i", document.Int(int64(i))))
	}
	assert.Equal(t, 4, b.Len("c"))
	assert.Len(t, w.Calls(), 3)

	w.setErr(nil)
	require.NoError(t, b.Flush(ctx, "c"))
	calls := w.Calls()
	assert.Len(t, calls[len(calls)-1].payloads, 4)
	assert.Equal(t, 0, b.Len("c"))
}

func TestFlush_PartialFailureReportsItems(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{rejectAt: []int{1}}
	b := buffer.New(w, buffer.WithThreshold(10))
	ctx := context.Background()

	b.Insert(ctx, "c", doc("a", document.Int(1)))
	b.Insert(ctx, "c", doc("a", document.String("not a number")))

	err := b.Flush(ctx, "c")
	var flushErr *buffer.FlushError
	require.ErrorAs(t, err, &flushErr)
	assert.Equal(t, "c", flushErr.Collection)
	assert.Equal(t, 2, flushErr.Size)
	require.Len(t, flushErr.GetFailures(), 1)
	assert.Equal(t, 1, flushErr.GetFailures()[0].Position)
	assert.Contains(t, err.Error(), "1 items rejected")
	assert.Equal(t, 2, b.Len("c"))
}

func TestFlush_TransportErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such host")
	w := &fakeWriter{err: cause}
	b := buffer.New(w, buffer.WithThreshold(10))
	b.Insert(context.Background(), "c", doc("a", document.Int(1)))

	err := b.Flush(context.Background(), "c")
	require.ErrorIs(t, err, buffer.ErrFlushFailed)
	require.ErrorIs(t, err, cause)
}

func TestFlush_AbsentOrEmptyIsNoop(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(1))
	ctx := context.Background()

	require.NoError(t, b.Flush(ctx, "never-seen"))
	assert.Empty(t, w.Calls())

	b.Insert(ctx, "c", doc("a", document.Int(1)))
	require.Len(t, w.Calls(), 1)

	require.NoError(t, b.Flush(ctx, "c"))
	require.NoError(t, b.Flush(ctx, "c"))
	assert.Len(t, w.Calls(), 1)
	assert.Equal(t, []string{"c"}, b.Collections())
}

func TestFlush_EncodingErrorRetainsBatch(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(10), buffer.WithEncoder(document.SimpleEncoder{}))
	ctx := context.Background()

	b.Insert(ctx, "c", doc(`bad"key`, document.Int(1)))

	err := b.Flush(ctx, "c")
	require.ErrorIs(t, err, buffer.ErrFlushFailed)
	require.ErrorIs(t, err, document.ErrInvalidKey)
	assert.Empty(t, w.Calls())
	assert.Equal(t, 1, b.Len("c"))
}

func TestSetThreshold(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w)
	assert.Equal(t, buffer.DefaultThreshold, b.Threshold())

	b.SetThreshold(0)
	assert.Equal(t, 1, b.Threshold())

	b.SetThreshold(5)
	ctx := context.Background()
	for range 3 {
		b.Insert(ctx, "c", doc("a", document.Int(1)))
	}

	b.SetThreshold(2)
	assert.Empty(t, w.Calls(), "lowering the threshold must not flush")
	assert.Equal(t, 3, b.Len("c"))

	b.Insert(ctx, "c", doc("a", document.Int(1)))
	require.Len(t, w.Calls(), 1)
	assert.Len(t, w.Calls()[0].payloads, 4)
}

func TestInsert_CopiesDocument(t *testing.T) {
	t.Parallel()

	b := buffer.New(&fakeWriter{}, buffer.WithThreshold(10))
	d := doc("a", document.Int(1))
	b.Insert(context.Background(), "c", d)
	d.Set("a", document.Int(2))

	v, _ := b.Pending("c")[0].Get("a")
	assert.True(t, v.Equal(document.Int(1)))
}

func TestCollectionsAreIndependent(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(2))
	ctx := context.Background()

	b.Insert(ctx, "a", doc("n", document.Int(1)))
	b.Insert(ctx, "b", doc("n", document.Int(1)))
	assert.Empty(t, w.Calls())

	b.Insert(ctx, "b", doc("n", document.Int(2)))
	calls := w.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "b", calls[0].index)
	assert.Equal(t, 1, b.Len("a"))
	assert.Equal(t, []string{"a", "b"}, b.Collections())
}

func TestFlushAll(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(10))
	ctx := context.Background()

	b.Insert(ctx, "a", doc("n", document.Int(1)))
	b.Insert(ctx, "b", doc("n", document.Int(1)))
	require.NoError(t, b.FlushAll(ctx))
	assert.Len(t, w.Calls(), 2)

	b.Insert(ctx, "a", doc("n", document.Int(1)))
	w.setErr(errors.New("connection reset"))
	err := b.FlushAll(ctx)
	require.ErrorIs(t, err, buffer.ErrFlushFailed)
	assert.Equal(t, 1, b.Len("a"))
}

func TestConcurrentInserts_NoLostUpdates(t *testing.T) {
	t.Parallel()

	const n = 200
	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(n+1))

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Insert(context.Background(), "c", doc("i", document.Int(int64(i))))
		}()
	}
	wg.Wait()

	assert.Equal(t, n, b.Len("c"))
	assert.Empty(t, w.Calls())
}

func TestConcurrentInserts_FlushesEveryDocumentOnce(t *testing.T) {
	t.Parallel()

	const n, threshold = 300, 7
	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(threshold))

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Insert(context.Background(), "c", doc("i", document.Int(int64(i))))
		}()
	}
	wg.Wait()
	require.NoError(t, b.Flush(context.Background(), "c"))

	seen := make(map[string]int)
	for _, call := range w.Calls() {
		assert.LessOrEqual(t, len(call.payloads), threshold)
		for _, p := range call.payloads {
			seen[p]++
		}
	}
	require.Len(t, seen, n)
	for p, count := range seen {
		assert.Equal(t, 1, count, p)
	}
}

func TestInsertDuringFailingFlush_IsAppendedAfterIt(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{
		err:     errors.New("timeout"),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	b := buffer.New(w, buffer.WithThreshold(100))
	ctx := context.Background()
	for i := range 3 {
		b.Insert(ctx, "c", doc("i", document.Int(int64(i))))
	}

	flushDone := make(chan error, 1)
	go func() { flushDone <- b.Flush(ctx, "c") }()
	<-w.entered

	insertDone := make(chan struct{})
	go func() {
		b.Insert(ctx, "c", doc("i", document.Int(3)))
		close(insertDone)
	}()

	select {
	case <-insertDone:
		t.Fatal("insert completed while a flush of the same collection was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(w.release)
	require.ErrorIs(t, <-flushDone, buffer.ErrFlushFailed)
	<-insertDone

	pending := b.Pending("c")
	require.Len(t, pending, 4)
	for i, d := range pending {
		v, _ := d.Get("i")
		assert.True(t, v.Equal(document.Int(int64(i))), "position %d", i)
	}
	assert.Len(t, w.Calls(), 1)
}

func TestFlushOfOtherCollectionDoesNotBlockInsert(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	b := buffer.New(w, buffer.WithThreshold(100))
	ctx := context.Background()
	b.Insert(ctx, "slow", doc("a", document.Int(1)))

	flushDone := make(chan error, 1)
	go func() { flushDone <- b.Flush(ctx, "slow") }()
	<-w.entered

	b.Insert(ctx, "fast", doc("a", document.Int(1)))
	assert.Equal(t, 1, b.Len("fast"))

	close(w.release)
	require.NoError(t, <-flushDone)
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	tp := telemetry.NewProviderWithRegistry(prometheus.NewRegistry())
	w := &fakeWriter{rejectAt: []int{0}}
	b := buffer.New(w, buffer.WithThreshold(2), buffer.WithTelemetry(tp))
	ctx := context.Background()

	b.Insert(ctx, "c", doc("a", document.Int(1)))
	b.Insert(ctx, "c", doc("a", document.Int(2)))

	m := tp.Metrics
	assert.InDelta(t, 2, testutil.ToFloat64(m.Inserts.WithLabelValues("c")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Flushes.WithLabelValues("c", telemetry.ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FailedItems.WithLabelValues("c")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Pending.WithLabelValues("c")), 0)
}

func ExampleBuffer() {
	w := &fakeWriter{}
	b := buffer.New(w, buffer.WithThreshold(3))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		b.Insert(ctx, "events", document.New(document.F("a", document.Int(int64(i)))))
	}

	fmt.Println(len(w.Calls()), b.Len("events"))
	// Output: 1 0
}
