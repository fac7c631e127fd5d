package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// Timeout returns middleware that sets a deadline on a top-level resolution.
// Resolutions do not block, so the deadline is observed between nested
// resolutions: once it passes, the next nested type fails with
// context.DeadlineExceeded. Nested resolutions inherit the existing deadline.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
			if _, ok := ctx.Deadline(); ok {
				return next(ctx, t)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, t)
		}
	}
}
