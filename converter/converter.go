// Package converter maps Go types to schema definitions.
//
// A Converter receives a candidate type, decides whether it understands it,
// and either returns a schema (usually a reference, after defining the full
// schema in the Context) or hands the request to the next converter.
// Converters form an immutable chain; each one only sees a Next callback.
//
// The Context is the registry as seen from inside a resolution. It is
// reentrant: a converter may call Context.Resolve from within its own
// Resolve to map nested types.
package converter

import (
	"reflect"

	"github.com/felixgeelhaar/bindschema/binding"
	"github.com/felixgeelhaar/bindschema/schema"
)

// AnnotatedType is a conversion request.
type AnnotatedType struct {
	// Type is the candidate type. A nil Type is an unresolved type; it
	// resolves to a nil schema.
	Type reflect.Type
}

// Of returns the request for the dynamic type of v.
func Of(v any) AnnotatedType {
	return AnnotatedType{Type: reflect.TypeOf(v)}
}

// String returns the Go type name, or "<nil>".
func (t AnnotatedType) String() string {
	if t.Type == nil {
		return "<nil>"
	}
	return t.Type.String()
}

// Context is the registry seen from inside a resolution.
type Context interface {
	// Resolve maps a nested type, returning a reference for types that
	// are registered as definitions and an inline schema otherwise.
	// It is safe to call from within Converter.Resolve.
	Resolve(t AnnotatedType) (*schema.Schema, error)

	// Define registers a definition under name. Defining the same name
	// again for the same origin type is a no-op.
	Define(name string, s *schema.Schema, origin AnnotatedType) error
}

// Next resolves a request with the rest of the chain.
type Next func(t AnnotatedType, ctx Context) (*schema.Schema, error)

// Converter maps a type to a schema. A nil schema with a nil error means
// the type was not handled.
type Converter interface {
	Resolve(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error)
}

// Func adapts a function to the Converter interface.
type Func func(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error)

// Resolve implements Converter.
func (f Func) Resolve(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error) {
	return f(t, ctx, next)
}

// Chain composes converters into one. Converters are tried in order; each
// receives the remaining converters as its Next, and the last one receives
// the Next passed to the chain.
func Chain(converters ...Converter) Converter {
	c := chain(append([]Converter(nil), converters...))
	return Func(func(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error) {
		return c.run(0, t, ctx, next)
	})
}

type chain []Converter

func (c chain) run(i int, t AnnotatedType, ctx Context, final Next) (*schema.Schema, error) {
	if i == len(c) {
		return delegate(t, ctx, final)
	}
	return c[i].Resolve(t, ctx, func(t AnnotatedType, ctx Context) (*schema.Schema, error) {
		return c.run(i+1, t, ctx, final)
	})
}

// delegate forwards to next, or reports the type as not handled.
func delegate(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error) {
	if next == nil {
		return nil, nil
	}
	return next(t, ctx)
}

// Option configures the converters in this package.
type Option func(*options)

type options struct {
	source binding.Source
	prefix string
}

func newOptions(opts []Option) *options {
	o := &options{
		source: binding.Tags{},
		prefix: schema.ComponentsPrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSource sets where binding metadata is read from. Defaults to binding.Tags.
func WithSource(s binding.Source) Option {
	return func(o *options) {
		o.source = s
	}
}

// WithRefPrefix sets the pointer prefix of returned references.
// Defaults to schema.ComponentsPrefix.
func WithRefPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}
