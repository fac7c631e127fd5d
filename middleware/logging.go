package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// Logger is the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logging returns middleware that logs resolution details.
// Successful resolutions are logged at debug level, since a single type graph
// produces one entry per nested type. Errors are logged at error level.
func Logging(logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
			start := time.Now()

			s, err := next(ctx, t)

			duration := time.Since(start)

			// Build fields
			fields := []Field{
				F("type", t.String()),
				F("duration", duration),
			}

			if id := ResolutionIDFromContext(ctx); id != "" {
				fields = append(fields, F("resolution_id", id))
			}
			if depth := DepthFromContext(ctx); depth > 0 {
				fields = append(fields, F("depth", depth))
			}

			if err != nil {
				fields = append(fields, F("error", err.Error()))
				logger.Error("resolution failed", fields...)
				return s, err
			}

			if ref := s.RefName(); ref != "" {
				fields = append(fields, F("ref", ref))
			}
			logger.Debug("type resolved", fields...)

			return s, err
		}
	}
}

// NopLogger is a logger that discards all log entries.
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
