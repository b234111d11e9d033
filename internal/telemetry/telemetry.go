// Package telemetry installs the global otel tracer provider.
package telemetry

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EndpointEnv enables export when set. The exporter reads the remaining
// OTEL_EXPORTER_OTLP_* variables itself.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Enabled reports whether an exporter endpoint is configured.
func Enabled() bool {
	return os.Getenv(EndpointEnv) != ""
}

// Init sets up span export over OTLP/HTTP. Without an endpoint the global no-op
// provider stays in place.
func Init(ctx context.Context, service, version string) (ShutdownFunc, error) {
	if !Enabled() {
		return noop, nil
	}
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return noop, errors.Wrap(err, "failed to create otlp exporter")
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(NewResource(service, version)),
	)
	otel.SetTracerProvider(provider)
	log.Debug().Str("endpoint", os.Getenv(EndpointEnv)).Msg("tracing enabled")
	return provider.Shutdown, nil
}

func NewResource(service, version string) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)
}
