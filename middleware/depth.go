package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// ErrDepthExceeded is returned when a type graph nests deeper than the
// configured limit.
var ErrDepthExceeded = errors.New("resolution depth exceeded")

const depthKey contextKey = "depth"

// DepthLimitOption configures the depth limit middleware.
type DepthLimitOption func(*depthLimitConfig)

type depthLimitConfig struct {
	logger Logger
}

// WithDepthLimitLogger sets the logger for depth limit events.
func WithDepthLimitLogger(l Logger) DepthLimitOption {
	return func(o *depthLimitConfig) {
		o.logger = l
	}
}

// DepthLimit returns middleware that rejects resolutions nested more than
// maxDepth levels below the top-level type. The top-level type is depth 0.
func DepthLimit(maxDepth int, opts ...DepthLimitOption) Middleware {
	cfg := &depthLimitConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
			depth, ok := ctx.Value(depthKey).(int)
			if ok {
				depth++
			}
			if depth > maxDepth {
				if cfg.logger != nil {
					cfg.logger.Warn("resolution depth limit exceeded",
						Field{Key: "type", Value: t.String()},
						Field{Key: "depth", Value: depth},
						Field{Key: "max", Value: maxDepth},
					)
				}
				return nil, fmt.Errorf("%w: %s at depth %d exceeds limit of %d", ErrDepthExceeded, t, depth, maxDepth)
			}

			return next(context.WithValue(ctx, depthKey, depth), t)
		}
	}
}

// DepthFromContext returns the nesting depth recorded by DepthLimit, or 0.
func DepthFromContext(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey).(int)
	return depth
}
