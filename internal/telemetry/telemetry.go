// Package telemetry exposes Prometheus metrics and an OpenTelemetry tracer for
// buffered indexing.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "index-buffer"
	namespace   = "index_buffer"
)

// Flush results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	Inserts       *prometheus.CounterVec
	Flushes       *prometheus.CounterVec
	Pending       *prometheus.GaugeVec
	FlushDuration *prometheus.HistogramVec
	FlushSize     prometheus.Histogram
	FailedItems   *prometheus.CounterVec

	BulkRequests *prometheus.CounterVec
	BulkDuration prometheus.Histogram
}

// Provider bundles metrics, their registry and a tracer. A nil *Provider is
// valid and records nothing.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider registers every collector on a fresh registry, together with the
// Go runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewProviderWithRegistry(reg)
}

// NewProviderWithRegistry registers the collectors on reg only.
func NewProviderWithRegistry(reg *prometheus.Registry) *Provider {
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  newMetrics(promauto.With(reg)),
		registry: reg,
	}
}

// Registry returns the registry backing the metrics.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		Inserts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserts_total",
			Help:      "Documents appended to a pending batch",
		}, []string{"collection"}),
		Flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Flush attempts by result",
		}, []string{"collection", "result"}),
		Pending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_documents",
			Help:      "Documents waiting in a pending batch",
		}, []string{"collection"}),
		FlushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent encoding and submitting a batch",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"collection", "result"}),
		FlushSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_size",
			Help:      "Documents per flush attempt",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		FailedItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_items_total",
			Help:      "Bulk items rejected by the backend",
		}, []string{"collection"}),
		BulkRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_requests_total",
			Help:      "Bulk requests sent to Elasticsearch by outcome",
		}, []string{"outcome"}),
		BulkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_request_duration_seconds",
			Help:      "Round-trip time of bulk requests",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordInsert counts one appended document and updates the pending gauge.
func (p *Provider) RecordInsert(collection string, pending int) {
	if p == nil {
		return
	}
	p.Metrics.Inserts.WithLabelValues(collection).Inc()
	p.Metrics.Pending.WithLabelValues(collection).Set(float64(pending))
}

// RecordFlush records one flush attempt.
func (p *Provider) RecordFlush(collection, result string, size int, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.Flushes.WithLabelValues(collection, result).Inc()
	if result == ResultEmpty {
		return
	}
	p.Metrics.FlushDuration.WithLabelValues(collection, result).Observe(duration.Seconds())
	p.Metrics.FlushSize.Observe(float64(size))
}

// SetPending sets the pending gauge for collection.
func (p *Provider) SetPending(collection string, pending int) {
	if p == nil {
		return
	}
	p.Metrics.Pending.WithLabelValues(collection).Set(float64(pending))
}

// RecordFailedItems counts items rejected inside an otherwise delivered bulk request.
func (p *Provider) RecordFailedItems(collection string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.Metrics.FailedItems.WithLabelValues(collection).Add(float64(n))
}

// RecordBulkRequest records one bulk round trip. Outcome is "ok", "partial" or "error".
func (p *Provider) RecordBulkRequest(outcome string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.BulkRequests.WithLabelValues(outcome).Inc()
	p.Metrics.BulkDuration.Observe(duration.Seconds())
}

// StartSpan starts a span. With a nil provider it returns ctx unchanged and a
// no-op span, leaving any span already in ctx untouched.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p == nil {
		return ctx, noop.Span{}
	}
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
