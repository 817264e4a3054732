// Package observability provides OpenTelemetry tracing and metrics for
// dispatches and channel sends.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/senderhub/pkg/config"
)

const instrumentationName = "github.com/kart-io/senderhub"

// Span names
const (
	SpanDispatch = "senderhub.dispatch"
	SpanSend     = "senderhub.send"
)

// TelemetryProvider provides observability features
type TelemetryProvider struct {
	config        config.TelemetryConfig
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	// Metrics
	messagesSent   metric.Int64Counter
	messagesFailed metric.Int64Counter
	sendDuration   metric.Float64Histogram
}

// NewTelemetryProvider creates a new telemetry provider. A nil or disabled
// configuration yields a provider backed by the global no-op tracer and
// meter.
func NewTelemetryProvider(cfg *config.TelemetryConfig) (*TelemetryProvider, error) {
	if cfg == nil {
		c := config.DefaultTelemetryConfig()
		cfg = &c
	}

	tp := &TelemetryProvider{
		config: *cfg,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	if !cfg.Enabled {
		return tp, nil
	}

	if cfg.TracingEnabled {
		if err := tp.initTracing(); err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	if cfg.MetricsEnabled {
		if err := tp.initMetrics(); err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	return tp, nil
}

// Noop returns a disabled provider
func Noop() *TelemetryProvider {
	tp, _ := NewTelemetryProvider(nil)
	return tp
}

// initTracing initializes OpenTelemetry tracing with an OTLP/HTTP exporter
func (tp *TelemetryProvider) initTracing() error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(tp.config.ServiceName),
			semconv.ServiceVersion(tp.config.ServiceVersion),
			semconv.DeploymentEnvironment(tp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(tp.config.OTLPEndpoint),
			otlptracehttp.WithHeaders(tp.config.OTLPHeaders),
		),
	)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	tp.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tp.config.SampleRate)),
	)

	otel.SetTracerProvider(tp.traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp.tracer = tp.traceProvider.Tracer(instrumentationName,
		trace.WithInstrumentationVersion(tp.config.ServiceVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)

	return nil
}

// initMetrics creates the send counters and the duration histogram
func (tp *TelemetryProvider) initMetrics() error {
	tp.meter = otel.Meter(instrumentationName,
		metric.WithInstrumentationVersion(tp.config.ServiceVersion),
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	var err error

	tp.messagesSent, err = tp.meter.Int64Counter(
		"senderhub_messages_sent_total",
		metric.WithDescription("Total number of messages delivered"),
	)
	if err != nil {
		return fmt.Errorf("create messages_sent counter: %w", err)
	}

	tp.messagesFailed, err = tp.meter.Int64Counter(
		"senderhub_messages_failed_total",
		metric.WithDescription("Total number of sends that did not deliver"),
	)
	if err != nil {
		return fmt.Errorf("create messages_failed counter: %w", err)
	}

	tp.sendDuration, err = tp.meter.Float64Histogram(
		"senderhub_send_duration_seconds",
		metric.WithDescription("Duration of channel sends"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create send_duration histogram: %w", err)
	}

	return nil
}

// TraceOperation creates a new span for an operation
func (tp *TelemetryProvider) TraceOperation(ctx context.Context, operationName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	if tp == nil || tp.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return tp.tracer.Start(ctx, operationName,
		trace.WithAttributes(attributes...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// TraceDispatch creates a span covering one dispatch
func (tp *TelemetryProvider) TraceDispatch(ctx context.Context, dispatchID string, channels int) (context.Context, trace.Span) {
	return tp.TraceOperation(ctx, SpanDispatch,
		attribute.String("senderhub.dispatch.id", dispatchID),
		attribute.Int("senderhub.channels.count", channels),
	)
}

// TraceSend creates a span for one channel send
func (tp *TelemetryProvider) TraceSend(ctx context.Context, dispatchID, channel string) (context.Context, trace.Span) {
	return tp.TraceOperation(ctx, SpanSend,
		attribute.String("senderhub.dispatch.id", dispatchID),
		attribute.String("senderhub.channel", channel),
	)
}

// RecordMessageSent records a delivered message
func (tp *TelemetryProvider) RecordMessageSent(ctx context.Context, channel string, duration time.Duration) {
	if tp == nil {
		return
	}
	if tp.messagesSent != nil {
		tp.messagesSent.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("status", "success"),
		))
	}

	if tp.sendDuration != nil {
		tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("status", "success"),
		))
	}
}

// RecordMessageFailed records a send that ended without delivery
func (tp *TelemetryProvider) RecordMessageFailed(ctx context.Context, channel string, duration time.Duration, stage string) {
	if tp == nil {
		return
	}
	if tp.messagesFailed != nil {
		tp.messagesFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("stage", stage),
		))
	}

	if tp.sendDuration != nil {
		tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("status", "error"),
		))
	}
}

// SetSpanError sets an error on the span
func (tp *TelemetryProvider) SetSpanError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span as successful
func (tp *TelemetryProvider) SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// Shutdown flushes and stops the trace exporter
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if tp != nil && tp.traceProvider != nil {
		return tp.traceProvider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer instance
func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Meter returns the meter instance
func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

// Enabled reports whether telemetry export is on
func (tp *TelemetryProvider) Enabled() bool {
	return tp != nil && tp.config.Enabled
}
