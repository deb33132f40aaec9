package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/fitversal/onboardchat/internal/config"
)

// Init installs the global tracer and meter providers. Without an OTLP
// endpoint only propagation is configured and the returned shutdown is a
// no-op.
func Init(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.TelemetryEnabled() {
		log.Println("OpenTelemetry disabled: OTEL_EXPORTER_OTLP_ENDPOINT is empty")
		return func(context.Context) error { return nil }, nil
	}
	tc := cfg.Telemetry

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(tc.ServiceName),
			semconv.ServiceVersion(tc.ServiceVersion),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceEndpoint := tc.OTLPEndpoint
	if tc.OTLPTracesEndpoint != "" {
		traceEndpoint = tc.OTLPTracesEndpoint
	}
	metricEndpoint := tc.OTLPEndpoint
	if tc.OTLPMetricsEndpoint != "" {
		metricEndpoint = tc.OTLPMetricsEndpoint
	}

	traceExporter, metricExporter, err := newExporters(ctx, tc, traceEndpoint, metricEndpoint)
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	metricProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(
			metricExporter,
			metric.WithInterval(tc.MetricExportInterval),
		)),
	)

	otel.SetTracerProvider(traceProvider)
	otel.SetMeterProvider(metricProvider)

	return func(shutdownCtx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		defer cancel()

		return errors.Join(
			traceProvider.Shutdown(shutdownCtx),
			metricProvider.Shutdown(shutdownCtx),
		)
	}, nil
}

func newExporters(ctx context.Context, tc config.TelemetryConfig, traceEndpoint, metricEndpoint string) (trace.SpanExporter, metric.Exporter, error) {
	switch tc.OTLPProtocol {
	case "http/protobuf", "http":
		traceOptions := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(traceEndpoint),
			otlptracehttp.WithHeaders(tc.OTLPHeaders),
			otlptracehttp.WithTimeout(tc.ExportTimeout),
		}
		metricOptions := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(metricEndpoint),
			otlpmetrichttp.WithHeaders(tc.OTLPHeaders),
			otlpmetrichttp.WithTimeout(tc.ExportTimeout),
		}
		if tc.OTLPInsecure {
			traceOptions = append(traceOptions, otlptracehttp.WithInsecure())
			metricOptions = append(metricOptions, otlpmetrichttp.WithInsecure())
		}

		traceExporter, err := otlptracehttp.New(ctx, traceOptions...)
		if err != nil {
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		metricExporter, err := otlpmetrichttp.New(ctx, metricOptions...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}
		return traceExporter, metricExporter, nil
	default:
		traceOptions := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(traceEndpoint),
			otlptracegrpc.WithHeaders(tc.OTLPHeaders),
			otlptracegrpc.WithTimeout(tc.ExportTimeout),
		}
		metricOptions := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(metricEndpoint),
			otlpmetricgrpc.WithHeaders(tc.OTLPHeaders),
			otlpmetricgrpc.WithTimeout(tc.ExportTimeout),
		}
		if tc.OTLPInsecure {
			traceOptions = append(traceOptions, otlptracegrpc.WithInsecure())
			metricOptions = append(metricOptions, otlpmetricgrpc.WithInsecure())
		}

		traceExporter, err := otlptracegrpc.New(ctx, traceOptions...)
		if err != nil {
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}
		return traceExporter, metricExporter, nil
	}
}
