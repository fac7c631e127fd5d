package registry

import (
	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/middleware"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	converters []converter.Converter
	middleware []middleware.Middleware
	logger     middleware.Logger
}

// WithConverters sets the converters tried for every type, in order.
// Defaults to the XML binding converter followed by the reflecting converter.
func WithConverters(converters ...converter.Converter) Option {
	return func(o *options) {
		o.converters = append([]converter.Converter{}, converters...)
	}
}

// WithMiddleware adds middleware around every resolution, top-level and
// nested. Middleware are applied in the order given.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithLogger sets the logger for registry events such as name conflicts.
func WithLogger(l middleware.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
