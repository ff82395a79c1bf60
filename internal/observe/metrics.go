// Package observe provides application-wide observability primitives for
// SignBridge: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SignBridge metrics.
const meterName = "github.com/MrWong99/signbridge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// NormalizeDuration tracks gloss normalization latency. Use with attribute:
	//   attribute.String("mode", "rules"|"llm"|"wordsplit")
	NormalizeDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptChunks counts processed transcript chunks. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("status", "ok"|"fallback"|"rejected")
	TranscriptChunks metric.Int64Counter

	// ExportRequests counts session export requests.
	ExportRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", "stt"|"llm")
	ProviderErrors metric.Int64Counter

	// --- Distribution ---

	// SignCoverage tracks the per-chunk percentage of sign tokens backed by a
	// video asset.
	SignCoverage metric.Int64Histogram

	// --- Gauges ---

	// ActiveSessions tracks the number of live presenter sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveViewers tracks the number of connected caption viewers.
	ActiveViewers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for live-captioning latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// coverageBuckets defines bucket boundaries for the coverage percentage.
var coverageBuckets = []float64{
	0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("signbridge.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NormalizeDuration, err = m.Float64Histogram("signbridge.normalize.duration",
		metric.WithDescription("Latency of gloss normalization by mode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptChunks, err = m.Int64Counter("signbridge.transcript.chunks",
		metric.WithDescription("Total processed transcript chunks by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.ExportRequests, err = m.Int64Counter("signbridge.export.requests",
		metric.WithDescription("Total session export requests."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("signbridge.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Coverage distribution.
	if met.SignCoverage, err = m.Int64Histogram("signbridge.sign.coverage",
		metric.WithDescription("Per-chunk percentage of sign tokens backed by a video asset."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(coverageBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("signbridge.active_sessions",
		metric.WithDescription("Number of live presenter sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveViewers, err = m.Int64UpDownCounter("signbridge.active_viewers",
		metric.WithDescription("Number of connected caption viewers."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("signbridge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordChunk is a convenience method that records one processed transcript
// chunk with the standard attribute set.
func (m *Metrics) RecordChunk(ctx context.Context, mode, status string) {
	m.TranscriptChunks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}

// RecordNormalize is a convenience method that records one normalization
// latency observation for the given mode.
func (m *Metrics) RecordNormalize(ctx context.Context, mode string, seconds float64) {
	m.NormalizeDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCoverage is a convenience method that records one coverage percentage
// observation.
func (m *Metrics) RecordCoverage(ctx context.Context, percent int) {
	m.SignCoverage.Record(ctx, int64(percent))
}
