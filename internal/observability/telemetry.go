// Package observability sets up OpenTelemetry tracing for the server.
package observability

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is reported when neither the config nor
// OTEL_SERVICE_NAME names the service.
const DefaultServiceName = "tripcard"

// TelemetryConfig holds the tracing pipeline settings.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
}

// Shutdown flushes pending spans and restores the previous global provider.
type Shutdown func(ctx context.Context) error

// Setup installs a batching OTLP/HTTP tracer provider. When cfg is nil or
// disabled it returns a no-op Shutdown and leaves the global noop provider.
func Setup(ctx context.Context, cfg *TelemetryConfig) (Shutdown, error) {
	if cfg == nil || !cfg.Enabled {
		return noopShutdown, nil
	}

	origTP := otel.GetTracerProvider()
	origPropagator := otel.GetTextMapPropagator()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", ServiceName(cfg)),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("merge otel resource: %w", err)
	}

	exporterOpts := []otlptracehttp.Option{
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if cfg.Endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("create otel exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(shutdownCtx context.Context) error {
		err := provider.Shutdown(shutdownCtx)
		otel.SetTracerProvider(origTP)
		otel.SetTextMapPropagator(origPropagator)
		if err != nil {
			return fmt.Errorf("shutdown otel provider: %w", err)
		}
		return nil
	}, nil
}

// ServiceName resolves the reported service name.
func ServiceName(cfg *TelemetryConfig) string {
	if cfg != nil && cfg.ServiceName != "" {
		return cfg.ServiceName
	}
	if env := os.Getenv("OTEL_SERVICE_NAME"); env != "" {
		return env
	}
	return DefaultServiceName
}

// Tracer returns a named tracer from the global TracerProvider.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// EnabledFromEnv checks the OTEL_ENABLED env var.
func EnabledFromEnv() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_ENABLED")))
	return v == "1" || v == "true" || v == "yes"
}

func noopShutdown(context.Context) error { return nil }
