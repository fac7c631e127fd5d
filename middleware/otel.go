package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

const (
	instrumentationName = "github.com/felixgeelhaar/bindschema"
)

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	skipPackages   map[string]bool
}

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *otelConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return func(c *otelConfig) {
		c.meterProvider = mp
	}
}

// WithOTelServiceName sets the service name for telemetry.
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// WithOTelSkipPackages specifies package paths whose types are not traced.
// Types without a package path (builtins such as string) are addressed by "".
func WithOTelSkipPackages(pkgPaths ...string) OTelOption {
	return func(c *otelConfig) {
		for _, p := range pkgPaths {
			c.skipPackages[p] = true
		}
	}
}

// OTel returns middleware that adds OpenTelemetry tracing and metrics.
// It creates a span for each resolution and records resolution counts and
// latency. Nested resolutions produce child spans.
func OTel(opts ...OTelOption) Middleware {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "bindschema",
		skipPackages:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion("1.0.0"),
	)

	meter := cfg.meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion("1.0.0"),
	)

	// Create metrics instruments
	resolutionCounter, _ := meter.Int64Counter(
		"bindschema.resolutions",
		metric.WithDescription("Total number of type resolutions"),
		metric.WithUnit("{resolution}"),
	)

	resolutionDuration, _ := meter.Float64Histogram(
		"bindschema.resolution.duration",
		metric.WithDescription("Duration of type resolutions"),
		metric.WithUnit("ms"),
	)

	errorCounter, _ := meter.Int64Counter(
		"bindschema.errors",
		metric.WithDescription("Total number of failed type resolutions"),
		metric.WithUnit("{error}"),
	)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
			pkg := ""
			if t.Type != nil {
				pkg = t.Type.PkgPath()
			}
			if cfg.skipPackages[pkg] {
				return next(ctx, t)
			}

			ctx, span := tracer.Start(ctx, "bindschema.resolve",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("bindschema.type", t.String()),
					attribute.String("service.name", cfg.serviceName),
				),
			)
			defer span.End()

			if id := ResolutionIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("bindschema.resolution_id", id))
			}

			startTime := time.Now()

			attrs := []attribute.KeyValue{
				attribute.String("bindschema.package", pkg),
				attribute.String("service.name", cfg.serviceName),
			}

			resolutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

			s, err := next(ctx, t)

			duration := float64(time.Since(startTime).Milliseconds())
			resolutionDuration.Record(ctx, duration, metric.WithAttributes(attrs...))

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				var panicErr *PanicError
				if errors.As(err, &panicErr) {
					span.SetAttributes(attribute.Bool("bindschema.panic", true))
				}
				errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
				return s, err
			}

			if ref := s.RefName(); ref != "" {
				span.SetAttributes(attribute.String("bindschema.ref", ref))
			}
			span.SetStatus(codes.Ok, "")

			return s, err
		}
	}
}

// SpanFromContext returns the current span from context.
// Returns a no-op span if no span is present.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
