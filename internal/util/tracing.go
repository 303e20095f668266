package util

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Trace exporters
const (
	ExporterJaeger = "jaeger"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

const defaultTracerName = "sample-app"

var tracer trace.Tracer

// TracerConfig describes the tracer provider to build
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
	JaegerEndpoint string
	OTLPEndpoint   string
}

// InitTracer initializes OpenTelemetry tracing.
// With ExporterNone spans are still created so trace ids reach the logs.
func InitTracer(cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = tp.Tracer(cfg.ServiceName)

	GetLogger().Info("Tracer initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("exporter", cfg.Exporter))
	return tp, nil
}

func newExporter(cfg TracerConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterJaeger:
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	case ExporterOTLP:
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case ExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(defaultTracerName)
	}
	return tracer
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, spanName, opts...)
}
