// Package observe provides application-wide observability primitives for
// Lyrico: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Lyrico metrics.
const meterName = "github.com/hanbyeol/lyrico"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TickDuration tracks the per-tick sync recompute latency.
	TickDuration metric.Float64Histogram

	// LessonDuration tracks lesson generation latency (LLM round trip plus
	// post-processing).
	LessonDuration metric.Float64Histogram

	// --- Counters ---

	// KeywordActivations counts keyword overlay activations. Use with
	// attribute: attribute.String("mission_id", ...)
	KeywordActivations metric.Int64Counter

	// ProducerCommits counts committed producer recording sessions. Use with
	// attribute: attribute.String("mission_id", ...)
	ProducerCommits metric.Int64Counter

	// LessonRequests counts lesson generation requests. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	LessonRequests metric.Int64Counter

	// --- Error counters ---

	// PersistenceFailures counts failed store writes. Use with attribute:
	//   attribute.String("op", ...)
	PersistenceFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live mission sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ConnectedPlayers tracks the number of live player bridges.
	ConnectedPlayers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) that cover
// both sub-millisecond tick work and multi-second LLM round trips.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TickDuration, err = m.Float64Histogram("lyrico.sync.tick.duration",
		metric.WithDescription("Latency of one sync tick recompute."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LessonDuration, err = m.Float64Histogram("lyrico.lesson.duration",
		metric.WithDescription("Latency of lesson generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.KeywordActivations, err = m.Int64Counter("lyrico.overlay.activations",
		metric.WithDescription("Total keyword overlay activations by mission."),
	); err != nil {
		return nil, err
	}
	if met.ProducerCommits, err = m.Int64Counter("lyrico.producer.commits",
		metric.WithDescription("Total committed producer recording sessions by mission."),
	); err != nil {
		return nil, err
	}
	if met.LessonRequests, err = m.Int64Counter("lyrico.lesson.requests",
		metric.WithDescription("Total lesson generation requests by provider and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.PersistenceFailures, err = m.Int64Counter("lyrico.store.failures",
		metric.WithDescription("Total failed store writes by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("lyrico.active_sessions",
		metric.WithDescription("Number of live mission sessions."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedPlayers, err = m.Int64UpDownCounter("lyrico.connected_players",
		metric.WithDescription("Number of live player bridge connections."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lyrico.http.request.duration",
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

// RecordLessonRequest is a convenience method that records a lesson request
// counter increment with the standard attribute set.
func (m *Metrics) RecordLessonRequest(ctx context.Context, provider, status string) {
	m.LessonRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordPersistenceFailure is a convenience method that records a store
// failure counter increment.
func (m *Metrics) RecordPersistenceFailure(ctx context.Context, op string) {
	m.PersistenceFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}
