package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// TracerName identifies spans opened by this service.
const TracerName = "github.com/Chative-core-poc-v1/callcenter"

// TracingConfig enables the OTLP HTTP exporter. Tracing is disabled by default.
type TracingConfig struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	Insecure    bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"callcenter"`
}

// InitTracer installs the global tracer provider and returns its shutdown func. When
// tracing is disabled or the exporter cannot be built, the shutdown func is a no-op and
// spans go to the default no-op provider.
func InitTracer(ctx context.Context, cfg TracingConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		logx.Info().Msg("OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)")
		return noop
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		logx.Warn().Err(err).Msg("Failed to create OTLP exporter, tracing disabled")
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	logx.Info().Str("endpoint", cfg.Endpoint).Msg("OpenTelemetry tracer initialized")

	return tp.Shutdown
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
