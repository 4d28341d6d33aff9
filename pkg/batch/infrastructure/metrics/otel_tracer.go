package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	metrics "github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	logger "github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/querymetrics"

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer exporting spans over OTLP/HTTP.
func NewOpenTelemetryTracer(ctx context.Context, cfg coreConfig.TracingConfig) (*OpenTelemetryTracer, error) {
	opts := []otlptracehttp.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	logger.Infof("Tracing: exporting spans for service '%s' to %s", cfg.ServiceName, endpointOrDefault(cfg.Endpoint))
	return NewOpenTelemetryTracerWithProvider(provider), nil
}

// NewOpenTelemetryTracerWithProvider wraps an existing provider. Tests use it with an in-memory span recorder.
func NewOpenTelemetryTracerWithProvider(provider *sdktrace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{provider: provider, tracer: provider.Tracer(instrumentationName)}
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "the default OTLP endpoint"
	}
	return endpoint
}

// StartRunSpan starts the root span of a run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, mode, runID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "querymetrics."+mode,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("querymetrics.mode", mode),
			attribute.String("querymetrics.run_id", runID),
		))
	return ctx, func() { span.End() }
}

// StartSpan starts a child span.
func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attributes)...))
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span and marks it failed.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("querymetrics.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

// Shutdown flushes and stops the exporter.
func (t *OpenTelemetryTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
