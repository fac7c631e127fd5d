package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// PanicError is returned by Recover when a resolution panics.
// Panics usually come from user code such as XMLEnum methods.
type PanicError struct {
	Type  converter.AnnotatedType
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic resolving %s: %v", e.Type, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// PanicHandler is called when a panic is recovered.
type PanicHandler func(ctx context.Context, t converter.AnnotatedType, panicVal any) (*schema.Schema, error)

// Recover returns middleware that catches panics and converts them to a
// *PanicError.
func Recover() Middleware {
	return RecoverWithHandler(defaultPanicHandler)
}

// RecoverWithHandler returns middleware that catches panics and calls the provided handler.
// This allows for custom panic handling such as logging or alerting.
func RecoverWithHandler(handler PanicHandler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (s *schema.Schema, err error) {
			defer func() {
				if r := recover(); r != nil {
					s, err = handler(ctx, t, r)
				}
			}()
			return next(ctx, t)
		}
	}
}

func defaultPanicHandler(_ context.Context, t converter.AnnotatedType, panicVal any) (*schema.Schema, error) {
	return nil, &PanicError{Type: t, Value: panicVal}
}
