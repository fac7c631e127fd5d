// Package middleware provides middleware for type resolution.
//
// The registry runs every resolution, top-level and nested, through a
// handler wrapped by the configured middleware. Each middleware wraps the
// next handler in the chain, allowing pre- and post-processing of a
// resolution. Nested resolutions receive the context of the resolution
// that triggered them, so IDs and spans propagate down the type graph.
//
// # Basic Usage
//
// Create and compose middleware:
//
//	chain := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.ResolutionID(),
//	    middleware.Logging(logger),
//	)
//	handler := chain(baseHandler)
//
// # Available Middleware
//
// The package provides several built-in middleware:
//
//   - Recover: Catches panics raised by user code and returns a PanicError
//   - ResolutionID: Injects a unique ID shared by a resolution and its nested resolutions
//   - Timeout: Bounds the wall time of a top-level resolution
//   - DepthLimit: Rejects type graphs nested deeper than a limit
//   - Logging: Logs resolved types and timing
//   - OTel: Traces resolutions and records metrics
//
// # Default Stacks
//
//	// Recover + ResolutionID + Logging
//	stack := middleware.DefaultStack(logger)
//
//	// Recover + ResolutionID + Timeout + DepthLimit + Logging
//	stack := middleware.DefaultStackWithLimits(logger, 64, 5*time.Second)
//
// # Custom Middleware
//
// Implement custom middleware using the Middleware type:
//
//	func SkipInternal() middleware.Middleware {
//	    return func(next middleware.HandlerFunc) middleware.HandlerFunc {
//	        return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
//	            if t.Type != nil && strings.Contains(t.Type.PkgPath(), "/internal/") {
//	                return &schema.Schema{Type: "object"}, nil
//	            }
//	            return next(ctx, t)
//	        }
//	    }
//	}
package middleware
