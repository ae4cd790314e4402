// Package observability installs the OpenTelemetry trace provider.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures span export.
type Config struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string        // e.g. "localhost:4317"
	Insecure     bool          // plaintext gRPC, dev only
	SampleRate   float64       // 0.0 to 1.0
	BatchTimeout time.Duration
}

// Tracing owns the trace provider for the life of the process.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.TracerProvider
}

// New builds an OTLP/gRPC exporter and registers the provider globally.
// When disabled it returns a no-op provider and touches no global state.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Tracing, error) {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Enabled {
		log.InfoContext(ctx, "tracing disabled")
		return &Tracing{tracer: noop.NewTracerProvider()}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	t := newTracing(res, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(cfg.BatchTimeout)), cfg.SampleRate)
	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.InfoContext(ctx, "tracing initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.OTLPEndpoint,
		"sample_rate", cfg.SampleRate,
		"insecure", cfg.Insecure,
	)
	return t, nil
}

func newTracing(res *resource.Resource, processor sdktrace.TracerProviderOption, sampleRate float64) *Tracing {
	p := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		processor,
		sdktrace.WithSampler(sampler(sampleRate)),
	)
	return &Tracing{provider: p, tracer: p}
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns a named tracer from the installed provider.
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.tracer.Tracer(name)
}

// Shutdown flushes pending spans. It is a no-op when tracing is disabled.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
