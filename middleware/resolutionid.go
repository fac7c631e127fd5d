package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const resolutionIDKey contextKey = "resolutionID"

// ResolutionID returns middleware that injects a unique resolution ID into
// the context. If an ID already exists in the context, it is preserved, so
// nested resolutions share the ID of the top-level one.
func ResolutionID() Middleware {
	return ResolutionIDWithGenerator(uuid.NewString)
}

// ResolutionIDWithGenerator returns middleware that uses a custom ID generator.
func ResolutionIDWithGenerator(generator func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
			if existing := ResolutionIDFromContext(ctx); existing != "" {
				return next(ctx, t)
			}

			ctx = ContextWithResolutionID(ctx, generator())
			return next(ctx, t)
		}
	}
}

// ResolutionIDFromContext returns the resolution ID from the context, or empty string if not set.
func ResolutionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(resolutionIDKey).(string)
	return id
}

// ContextWithResolutionID returns a new context with the resolution ID set.
func ContextWithResolutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resolutionIDKey, id)
}
