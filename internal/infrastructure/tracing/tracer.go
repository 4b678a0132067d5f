// Package tracing provides OpenTelemetry-based distributed tracing
// infrastructure. It supports stdout and OTLP exporters and provides
// domain-specific span helpers for operation execution and queue drains.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the syncbridge tracer.
	TracerName = "github.com/jbctechsolutions/syncbridge"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "syncbridge",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: otel.Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	// Create exporter
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	// The default resource's schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create tracer provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set global tracer provider
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// ExecuteSpan represents an offline-aware operation execution span.
type ExecuteSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartExecuteSpan starts a span for one offline-aware operation.
func (t *Tracer) StartExecuteSpan(ctx context.Context, actionType, resourceKey string) (context.Context, *ExecuteSpan) {
	ctx, span := t.tracer.Start(ctx, "executor.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("action.type", actionType),
			attribute.String("resource.key", resourceKey),
		),
	)

	return ctx, &ExecuteSpan{span: span, ctx: ctx}
}

// SetOnline marks whether the operation observed the link as usable.
func (es *ExecuteSpan) SetOnline(online bool) {
	es.span.SetAttributes(attribute.Bool("connectivity.online", online))
}

// SetFromCache marks whether the result was served from the snapshot cache.
func (es *ExecuteSpan) SetFromCache(fromCache bool) {
	es.span.SetAttributes(attribute.Bool("executor.from_cache", fromCache))
}

// SetQueued marks whether the write was deferred into the pending queue.
func (es *ExecuteSpan) SetQueued(queued bool, actionID string) {
	es.span.SetAttributes(attribute.Bool("executor.queued", queued))
	if actionID != "" {
		es.span.SetAttributes(attribute.String("action.id", actionID))
	}
}

// End ends the execute span with success status.
func (es *ExecuteSpan) End() {
	es.span.SetStatus(codes.Ok, "operation completed")
	es.span.End()
}

// EndWithError ends the execute span with error status.
func (es *ExecuteSpan) EndWithError(err error) {
	es.span.RecordError(err)
	es.span.SetStatus(codes.Error, err.Error())
	es.span.End()
}

// DrainSpan represents a queue drain cycle span.
type DrainSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartDrainSpan starts a span for one drain cycle.
func (t *Tracer) StartDrainSpan(ctx context.Context, drainID string, pending int) (context.Context, *DrainSpan) {
	ctx, span := t.tracer.Start(ctx, "queue.drain",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("drain.id", drainID),
			attribute.Int("drain.pending", pending),
		),
	)

	return ctx, &DrainSpan{span: span, ctx: ctx}
}

// SetOutcome records the drain totals.
func (ds *DrainSpan) SetOutcome(replayed, deadLettered, remaining int) {
	ds.span.SetAttributes(
		attribute.Int("drain.replayed", replayed),
		attribute.Int("drain.dead_lettered", deadLettered),
		attribute.Int("drain.remaining", remaining),
	)
}

// End ends the drain span with success status.
func (ds *DrainSpan) End() {
	ds.span.SetStatus(codes.Ok, "drain completed")
	ds.span.End()
}

// EndWithError ends the drain span with error status.
func (ds *DrainSpan) EndWithError(err error) {
	ds.span.RecordError(err)
	ds.span.SetStatus(codes.Error, err.Error())
	ds.span.End()
}

// ReplaySpan represents one replayed action span.
type ReplaySpan struct {
	span trace.Span
	ctx  context.Context
}

// StartReplaySpan starts a span for replaying a single pending action.
func (t *Tracer) StartReplaySpan(ctx context.Context, actionID, actionType string) (context.Context, *ReplaySpan) {
	ctx, span := t.tracer.Start(ctx, "queue.replay",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("action.id", actionID),
			attribute.String("action.type", actionType),
		),
	)

	return ctx, &ReplaySpan{span: span, ctx: ctx}
}

// SetAttempts records how many attempts the replay took.
func (rs *ReplaySpan) SetAttempts(attempts int) {
	rs.span.SetAttributes(attribute.Int("replay.attempts", attempts))
}

// End ends the replay span with success status.
func (rs *ReplaySpan) End() {
	rs.span.SetStatus(codes.Ok, "action replayed")
	rs.span.End()
}

// EndWithError ends the replay span with error status.
func (rs *ReplaySpan) EndWithError(err error) {
	rs.span.RecordError(err)
	rs.span.SetStatus(codes.Error, err.Error())
	rs.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}

// SetAttribute sets an attribute on the current span.
func SetAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	}
}
