package middleware

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

type traced struct{}

func TestOTelMiddleware(t *testing.T) {
	t.Run("creates span for resolution", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		middleware := OTel(WithTracerProvider(tp))

		handler := middleware(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			return schema.Ref(schema.ComponentsPrefix, "Traced"), nil
		})

		_, err := handler(context.Background(), converter.Of(traced{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		span := spans[0]
		if span.Name != "bindschema.resolve" {
			t.Errorf("expected span name 'bindschema.resolve', got %q", span.Name)
		}
		if got := attrValue(span.Attributes, "bindschema.type"); got != "middleware.traced" {
			t.Errorf("bindschema.type = %q, want middleware.traced", got)
		}
		if got := attrValue(span.Attributes, "bindschema.ref"); got != "Traced" {
			t.Errorf("bindschema.ref = %q, want Traced", got)
		}
	})

	t.Run("nests spans of nested resolutions", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		var handler HandlerFunc
		handler = OTel(WithTracerProvider(tp))(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			if at.Type == reflect.TypeOf(traced{}) {
				return handler(ctx, converter.Of(""))
			}
			return &schema.Schema{Type: "string"}, nil
		})

		if _, err := handler(context.Background(), converter.Of(traced{})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		spans := exporter.GetSpans()
		if len(spans) != 2 {
			t.Fatalf("expected 2 spans, got %d", len(spans))
		}
		// Children end first.
		child, parent := spans[0], spans[1]
		if child.Parent.SpanID() != parent.SpanContext.SpanID() {
			t.Error("expected nested resolution span to be a child")
		}
	})

	t.Run("records error on failure", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		middleware := OTel(WithTracerProvider(tp))

		expectedErr := errors.New("handler failed")
		handler := middleware(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			return nil, expectedErr
		})

		_, err := handler(context.Background(), converter.Of(traced{}))
		if !errors.Is(err, expectedErr) {
			t.Fatalf("err = %v, want %v", err, expectedErr)
		}

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		span := spans[0]
		if len(span.Events) == 0 {
			t.Error("expected error event on span")
		}
	})

	t.Run("marks recovered panics", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		handler := Chain(OTel(WithTracerProvider(tp)), Recover())(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			panic("boom")
		})
		handler(context.Background(), converter.Of(traced{}))

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		found := false
		for _, attr := range spans[0].Attributes {
			if attr.Key == "bindschema.panic" && attr.Value.AsBool() {
				found = true
			}
		}
		if !found {
			t.Error("expected bindschema.panic attribute")
		}
	})

	t.Run("skips configured packages", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		middleware := OTel(
			WithTracerProvider(tp),
			WithOTelSkipPackages(""),
		)

		handler := middleware(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			return &schema.Schema{Type: "string"}, nil
		})

		_, err := handler(context.Background(), converter.Of(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		spans := exporter.GetSpans()
		if len(spans) != 0 {
			t.Errorf("expected 0 spans for skipped package, got %d", len(spans))
		}
	})

	t.Run("uses custom service name", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		middleware := OTel(
			WithTracerProvider(tp),
			WithOTelServiceName("schema-build"),
		)

		handler := middleware(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			return &schema.Schema{}, nil
		})

		handler(context.Background(), converter.Of(traced{}))

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		if got := attrValue(spans[0].Attributes, "service.name"); got != "schema-build" {
			t.Errorf("service.name = %q, want schema-build", got)
		}
	})

	t.Run("uses global providers by default", func(t *testing.T) {
		middleware := OTel()
		if middleware == nil {
			t.Fatal("expected non-nil middleware")
		}
	})

	t.Run("records metrics", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer mp.Shutdown(context.Background())

		calls := 0
		handler := OTel(WithMeterProvider(mp))(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("failed")
			}
			return &schema.Schema{}, nil
		})

		handler(context.Background(), converter.Of(traced{}))
		handler(context.Background(), converter.Of(traced{}))

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Fatalf("collect: %v", err)
		}

		sums := map[string]int64{}
		histograms := 0
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					for _, dp := range data.DataPoints {
						sums[m.Name] += dp.Value
					}
				case metricdata.Histogram[float64]:
					if m.Name == "bindschema.resolution.duration" {
						for _, dp := range data.DataPoints {
							histograms += int(dp.Count)
						}
					}
				}
			}
		}

		if sums["bindschema.resolutions"] != 2 {
			t.Errorf("resolutions = %d, want 2", sums["bindschema.resolutions"])
		}
		if sums["bindschema.errors"] != 1 {
			t.Errorf("errors = %d, want 1", sums["bindschema.errors"])
		}
		if histograms != 2 {
			t.Errorf("duration samples = %d, want 2", histograms)
		}
	})
}

func TestSpanHelpers(t *testing.T) {
	t.Run("SpanFromContext returns span", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		tracer := tp.Tracer("test")
		ctx, span := tracer.Start(context.Background(), "test-span")
		defer span.End()

		got := SpanFromContext(ctx)
		if got != span {
			t.Error("expected same span from context")
		}
	})

	t.Run("AddSpanEvent adds event", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
		)
		defer tp.Shutdown(context.Background())

		tracer := tp.Tracer("test")
		ctx, span := tracer.Start(context.Background(), "test-span")

		AddSpanEvent(ctx, "test-event", attribute.String("key", "value"))
		span.End()

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		if len(spans[0].Events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(spans[0].Events))
		}

		event := spans[0].Events[0]
		if event.Name != "test-event" {
			t.Errorf("expected event name 'test-event', got %q", event.Name)
		}
	})
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.Emit()
		}
	}
	return ""
}
