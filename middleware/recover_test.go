package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

func panicking(v any) HandlerFunc {
	return func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
		panic(v)
	}
}

func TestRecover(t *testing.T) {
	t.Run("passes through results", func(t *testing.T) {
		s, err := Recover()(stringHandler(nil))(context.Background(), converter.Of(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s == nil {
			t.Fatal("expected schema")
		}
	})

	t.Run("passes through errors", func(t *testing.T) {
		expectedErr := errors.New("handler error")
		handler := HandlerFunc(func(ctx context.Context, at converter.AnnotatedType) (*schema.Schema, error) {
			return nil, expectedErr
		})

		_, err := Recover()(handler)(context.Background(), converter.Of(""))
		if !errors.Is(err, expectedErr) {
			t.Errorf("error = %v, want %v", err, expectedErr)
		}
	})

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "something went wrong", "something went wrong"},
		{"error", errors.New("panic error"), "panic error"},
		{"arbitrary value", 42, "42"},
	}
	for _, tt := range tests {
		t.Run("catches panic with "+tt.name, func(t *testing.T) {
			_, err := Recover()(panicking(tt.value))(context.Background(), converter.Of(0))

			var panicErr *PanicError
			if !errors.As(err, &panicErr) {
				t.Fatalf("expected *PanicError, got %T", err)
			}
			if panicErr.Type.String() != "int" {
				t.Errorf("Type = %v, want int", panicErr.Type)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err.Error(), tt.want)
			}
		})
	}

	t.Run("unwraps panicked errors", func(t *testing.T) {
		cause := errors.New("cause")
		_, err := Recover()(panicking(cause))(context.Background(), converter.Of(0))
		if !errors.Is(err, cause) {
			t.Errorf("errors.Is(err, cause) = false for %v", err)
		}
	})
}

func TestRecoverWithHandler(t *testing.T) {
	var capturedPanic any
	var capturedType converter.AnnotatedType

	customHandler := func(ctx context.Context, at converter.AnnotatedType, panicVal any) (*schema.Schema, error) {
		capturedPanic = panicVal
		capturedType = at
		return &schema.Schema{Type: "object"}, nil
	}

	req := converter.Of(logged{})
	s, err := RecoverWithHandler(customHandler)(panicking("test panic"))(context.Background(), req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Type != "object" {
		t.Errorf("Type = %q, want handler result", s.Type)
	}
	if capturedPanic != "test panic" {
		t.Errorf("capturedPanic = %v, want %q", capturedPanic, "test panic")
	}
	if capturedType != req {
		t.Error("type was not passed to handler")
	}
}
