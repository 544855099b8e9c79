package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

func TestProvider_RecordsBufferMetrics(t *testing.T) {
	t.Parallel()

	p := telemetry.NewProviderWithRegistry(prometheus.NewRegistry())

	p.RecordInsert("articles", 1)
	p.RecordInsert("articles", 2)
	p.RecordFlush("articles", telemetry.ResultFailure, 2, 10*time.Millisecond)
	p.RecordFlush("articles", telemetry.ResultEmpty, 0, 0)
	p.RecordFailedItems("articles", 1)
	p.RecordFailedItems("articles", 0)
	p.SetPending("articles", 0)

	assert.InDelta(t, 2, testutil.ToFloat64(p.Metrics.Inserts.WithLabelValues("articles")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.Metrics.Flushes.WithLabelValues("articles", telemetry.ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.Metrics.Flushes.WithLabelValues("articles", telemetry.ResultEmpty)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.Metrics.FailedItems.WithLabelValues("articles")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(p.Metrics.Pending.WithLabelValues("articles")), 0)
}

func TestProvider_Handler(t *testing.T) {
	t.Parallel()

	p := telemetry.NewProviderWithRegistry(prometheus.NewRegistry())
	p.RecordBulkRequest("ok", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `index_buffer_bulk_requests_total{outcome="ok"} 1`))
}

func TestNewProvider_IndependentRegistries(t *testing.T) {
	t.Parallel()

	a := telemetry.NewProvider()
	b := telemetry.NewProvider()
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestNilProvider(t *testing.T) {
	t.Parallel()

	var p *telemetry.Provider
	p.RecordInsert("c", 1)
	p.RecordFlush("c", telemetry.ResultSuccess, 1, time.Millisecond)
	p.RecordFailedItems("c", 3)
	p.RecordBulkRequest("error", time.Millisecond)
	p.SetPending("c", 0)

	ctx, span := p.StartSpan(context.Background(), "flush", attribute.String("collection", "c"))
	defer span.End()
	assert.NotNil(t, ctx)
}

type recordingSpan struct {
	noop.Span

	ended  bool
	errors int
	status codes.Code
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func (s *recordingSpan) RecordError(error, ...trace.EventOption) { s.errors++ }

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func TestNilProvider_LeavesParentSpanAlone(t *testing.T) {
	t.Parallel()

	parent := &recordingSpan{}
	ctx := trace.ContextWithSpan(context.Background(), parent)

	var p *telemetry.Provider
	got, span := p.StartSpan(ctx, "buffer.flush")
	span.RecordError(assert.AnError)
	span.SetStatus(codes.Error, "flush failed")
	span.End()

	assert.False(t, parent.ended)
	assert.Zero(t, parent.errors)
	assert.Equal(t, codes.Unset, parent.status)
	assert.Same(t, parent, trace.SpanFromContext(got))
}
