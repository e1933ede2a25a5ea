// Package observability provides OpenTelemetry integration and audit logging.
package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides observability features.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func())

	// RecordMetric records a raw metric value.
	RecordMetric(name string, value float64, labels map[string]string)

	// RecordDuration records a duration metric in seconds.
	RecordDuration(name string, duration float64, labels map[string]string)

	// RecordCounter increments a counter.
	RecordCounter(name string, labels map[string]string)

	// SetGauge adjusts an up-down gauge by value.
	SetGauge(name string, value float64, labels map[string]string)
}

// SpanOption configures span creation.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attributes []attribute.KeyValue
	kind       trace.SpanKind
}

// WithAttribute adds an attribute to the span.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(c *spanConfig) {
		switch v := value.(type) {
		case string:
			c.attributes = append(c.attributes, attribute.String(key, v))
		case int:
			c.attributes = append(c.attributes, attribute.Int(key, v))
		case int64:
			c.attributes = append(c.attributes, attribute.Int64(key, v))
		case float64:
			c.attributes = append(c.attributes, attribute.Float64(key, v))
		case bool:
			c.attributes = append(c.attributes, attribute.Bool(key, v))
		}
	}
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// TelemetryConfig configures telemetry.
type TelemetryConfig struct {
	// ServiceName is the service name for tracing.
	ServiceName string

	// ServiceVersion is the service version.
	ServiceVersion string

	// Environment is the deployment environment.
	Environment string

	// EnableTracing enables distributed tracing.
	EnableTracing bool

	// EnableMetrics enables metrics collection.
	EnableMetrics bool

	// MetricsPrefix is the prefix for all metrics.
	MetricsPrefix string
}

// DefaultTelemetryConfig returns default configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:    "ffiguard",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		EnableTracing:  true,
		EnableMetrics:  true,
		MetricsPrefix:  "ffiguard_",
	}
}

// telemetry implements Telemetry. Instruments are keyed by their bare
// name; the configured prefix is applied when they are created.
type telemetry struct {
	config TelemetryConfig
	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Int64UpDownCounter
}

// NewTelemetry creates a new telemetry instance with the task lifecycle
// instruments pre-registered.
func NewTelemetry(config TelemetryConfig) (Telemetry, error) {
	t := &telemetry{
		config:     config,
		tracer:     otel.Tracer(config.ServiceName),
		meter:      otel.Meter(config.ServiceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Int64UpDownCounter),
	}

	// Initialize metrics
	spawned, err := t.meter.Int64Counter(
		config.MetricsPrefix+"tasks_spawned_total",
		metric.WithDescription("Total number of tasks spawned"),
	)
	if err != nil {
		return nil, err
	}
	t.counters["tasks_spawned_total"] = spawned

	finished, err := t.meter.Int64Counter(
		config.MetricsPrefix+"tasks_finished_total",
		metric.WithDescription("Total number of tasks finished, by terminal status"),
	)
	if err != nil {
		return nil, err
	}
	t.counters["tasks_finished_total"] = finished

	cancels, err := t.meter.Int64Counter(
		config.MetricsPrefix+"cancel_requests_total",
		metric.WithDescription("Total number of cancellation requests delivered to running tasks"),
	)
	if err != nil {
		return nil, err
	}
	t.counters["cancel_requests_total"] = cancels

	recorded, err := t.meter.Int64Counter(
		config.MetricsPrefix+"errors_recorded_total",
		metric.WithDescription("Total number of errors recorded in a boundary error slot"),
	)
	if err != nil {
		return nil, err
	}
	t.counters["errors_recorded_total"] = recorded

	duration, err := t.meter.Float64Histogram(
		config.MetricsPrefix+"task_duration_seconds",
		metric.WithDescription("Wall time tasks spend in their run function"),
	)
	if err != nil {
		return nil, err
	}
	t.histograms["task_duration_seconds"] = duration

	active, err := t.meter.Int64UpDownCounter(
		config.MetricsPrefix+"tasks_active",
		metric.WithDescription("Number of handles currently held by a registry"),
	)
	if err != nil {
		return nil, err
	}
	t.gauges["tasks_active"] = active

	return t, nil
}

// StartSpan implements Telemetry.StartSpan.
func (t *telemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	if !t.config.EnableTracing {
		return ctx, func() {}
	}

	cfg := &spanConfig{
		kind: trace.SpanKindInternal,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(cfg.attributes...),
		trace.WithSpanKind(cfg.kind),
	)

	return ctx, func() {
		span.End()
	}
}

// RecordMetric implements Telemetry.RecordMetric.
func (t *telemetry) RecordMetric(name string, value float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	h := t.histogram(name)
	if h == nil {
		return
	}
	attrs := labelsToAttributes(labels)
	h.Record(context.Background(), value, metric.WithAttributes(attrs...))
}

// RecordDuration implements Telemetry.RecordDuration.
func (t *telemetry) RecordDuration(name string, duration float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	h := t.histogram(name)
	if h == nil {
		return
	}
	attrs := labelsToAttributes(labels)
	h.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordCounter implements Telemetry.RecordCounter.
func (t *telemetry) RecordCounter(name string, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	c := t.counter(name)
	if c == nil {
		return
	}
	attrs := labelsToAttributes(labels)
	c.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// SetGauge implements Telemetry.SetGauge.
func (t *telemetry) SetGauge(name string, value float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	g := t.gauge(name)
	if g == nil {
		return
	}
	attrs := labelsToAttributes(labels)
	g.Add(context.Background(), int64(value), metric.WithAttributes(attrs...))
}

// counter returns the named counter, creating it on first use.
func (t *telemetry) counter(name string) metric.Int64Counter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.counters[name]; ok {
		return c
	}
	c, err := t.meter.Int64Counter(t.config.MetricsPrefix + name)
	if err != nil {
		return nil
	}
	t.counters[name] = c
	return c
}

// histogram returns the named histogram, creating it on first use.
func (t *telemetry) histogram(name string) metric.Float64Histogram {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.histograms[name]; ok {
		return h
	}
	h, err := t.meter.Float64Histogram(t.config.MetricsPrefix + name)
	if err != nil {
		return nil
	}
	t.histograms[name] = h
	return h
}

// gauge returns the named up-down counter, creating it on first use.
func (t *telemetry) gauge(name string) metric.Int64UpDownCounter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.gauges[name]; ok {
		return g
	}
	g, err := t.meter.Int64UpDownCounter(t.config.MetricsPrefix + name)
	if err != nil {
		return nil
	}
	t.gauges[name] = g
	return g
}

// labelsToAttributes converts labels to OTEL attributes.
func labelsToAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// NoopTelemetry returns a no-op telemetry implementation.
func NoopTelemetry() Telemetry {
	return &noopTelemetry{}
}

type noopTelemetry struct{}

func (t *noopTelemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	return ctx, func() {}
}

func (t *noopTelemetry) RecordMetric(name string, value float64, labels map[string]string)      {}
func (t *noopTelemetry) RecordDuration(name string, duration float64, labels map[string]string) {}
func (t *noopTelemetry) RecordCounter(name string, labels map[string]string)                    {}
func (t *noopTelemetry) SetGauge(name string, value float64, labels map[string]string)          {}
