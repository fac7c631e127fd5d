package middleware

import "time"

// DefaultStack returns the recommended middleware stack.
// This includes resolution ID injection, logging, and panic recovery.
// Recover runs innermost so Logging records panics as failed resolutions.
func DefaultStack(logger Logger) []Middleware {
	return []Middleware{
		ResolutionID(),
		Logging(logger),
		Recover(),
	}
}

// DefaultStackWithLimits returns the default stack with a nesting depth
// limit and a deadline on each top-level resolution.
func DefaultStackWithLimits(logger Logger, maxDepth int, timeout time.Duration) []Middleware {
	return []Middleware{
		ResolutionID(),
		Timeout(timeout),
		DepthLimit(maxDepth, WithDepthLimitLogger(logger)),
		Logging(logger),
		Recover(),
	}
}
