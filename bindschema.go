// Package bindschema generates JSON Schema documents from Go types that
// carry XML binding metadata.
//
// Types are bound with struct tags: the XMLName field names the schema and
// optionally fixes the property order, the standard xml tags name the
// properties, and xmlbind marks them required. Enumerations implement
// XMLEnum. Types that cannot be annotated are bound through a YAML
// bindings file. Unbound structs fall back to their json tags.
//
// Basic usage:
//
//	type Address struct {
//	    XMLName xml.Name `xmlbind:"type=Address,order=zip street"`
//	    Street  string   `xml:"street" xmlbind:"required"`
//	    Zip     string   `xml:"zip"`
//	}
//
//	gen, err := bindschema.New()
//	if err != nil {
//	    return err
//	}
//	if err := gen.Add(ctx, Address{}); err != nil {
//	    return err
//	}
//	doc, err := gen.Document()
//	if err != nil {
//	    return err
//	}
//	out, err := doc.JSON()
package bindschema

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/felixgeelhaar/bindschema/binding"
	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/document"
	"github.com/felixgeelhaar/bindschema/middleware"
	"github.com/felixgeelhaar/bindschema/registry"
	"github.com/felixgeelhaar/bindschema/schema"
)

// Re-export core types for convenience

// Schema is a JSON Schema.
type Schema = schema.Schema

// Enum describes an enumeration binding.
type Enum = binding.Enum

// Enumeration is implemented by Go types bound as enumerations.
type Enumeration = binding.Enumeration

// Overrides is a parsed bindings file.
type Overrides = binding.Overrides

// ParseOverrides decodes a bindings file.
func ParseOverrides(data []byte) (*Overrides, error) {
	return binding.ParseOverrides(data)
}

// Converter maps Go types to schemas.
type Converter = converter.Converter

// Config describes the generated document.
type Config = document.Config

// Document is an assembled schema document.
type Document = document.Document

// Document layouts.
const (
	LayoutOpenAPI    = document.LayoutOpenAPI
	LayoutJSONSchema = document.LayoutJSONSchema
)

// Middleware types
type Middleware = middleware.Middleware
type HandlerFunc = middleware.HandlerFunc
type Logger = middleware.Logger
type LogField = middleware.Field
type PanicError = middleware.PanicError

// Middleware re-exports

// Recover returns middleware that catches panics and converts them to errors.
func Recover() Middleware {
	return middleware.Recover()
}

// Logging returns middleware that logs resolved types.
func Logging(logger Logger) Middleware {
	return middleware.Logging(logger)
}

// Timeout returns middleware that sets a deadline on a top-level resolution.
func Timeout(d time.Duration) Middleware {
	return middleware.Timeout(d)
}

// DepthLimit returns middleware that rejects type graphs nested deeper than maxDepth.
func DepthLimit(maxDepth int) Middleware {
	return middleware.DepthLimit(maxDepth)
}

// OTel returns middleware that traces and measures every resolution.
func OTel(opts ...middleware.OTelOption) Middleware {
	return middleware.OTel(opts...)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return middleware.F(key, value)
}

// Option configures a Generator.
type Option func(*options)

type options struct {
	cfg           document.Config
	configPath    string
	overrides     *binding.Overrides
	overridesPath string
	logger        Logger
	middleware    []Middleware
	converters    []Converter
	noReflector   bool
}

// WithConfig sets the document configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithConfigFile loads the document configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithOverrides binds types through a parsed bindings file. Types the file
// does not mention keep their struct tag bindings.
func WithOverrides(ov *Overrides) Option {
	return func(o *options) {
		o.overrides = ov
	}
}

// WithOverridesFile loads a bindings file.
func WithOverridesFile(path string) Option {
	return func(o *options) {
		o.overridesPath = path
	}
}

// WithLogger logs every resolution and registry event.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMiddleware adds middleware around every resolution.
func WithMiddleware(m ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithConverters adds converters tried after the XML binding converter and
// before the reflecting converter.
func WithConverters(c ...Converter) Option {
	return func(o *options) {
		o.converters = append(o.converters, c...)
	}
}

// WithoutReflector maps unbound structs inline with the generic mapping
// instead of defining them under their Go name.
func WithoutReflector() Option {
	return func(o *options) {
		o.noReflector = true
	}
}

// Generator collects the schemas of Go types into one document.
// It is safe for concurrent use.
type Generator struct {
	cfg      document.Config
	registry *registry.Registry
}

// New creates a Generator.
func New(opts ...Option) (*Generator, error) {
	o := &options{
		cfg: document.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.configPath != "" {
		cfg, err := document.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		o.cfg = cfg
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	if o.overridesPath != "" {
		ov, err := binding.LoadOverrides(o.overridesPath)
		if err != nil {
			return nil, err
		}
		o.overrides = ov
	}

	prefix := converter.WithRefPrefix(o.cfg.RefPrefix())
	xmlOpts := []converter.Option{prefix}
	if o.overrides != nil {
		xmlOpts = append(xmlOpts, converter.WithSource(o.overrides))
	}

	converters := []Converter{converter.NewXMLBinding(xmlOpts...)}
	converters = append(converters, o.converters...)
	if !o.noReflector {
		converters = append(converters, converter.NewReflector(prefix))
	}

	// Recover sits innermost so outer middleware observe panics as errors.
	mw := []Middleware{middleware.ResolutionID()}
	mw = append(mw, o.middleware...)
	regOpts := []registry.Option{registry.WithConverters(converters...)}
	if o.logger != nil {
		mw = append(mw, middleware.Logging(o.logger))
		regOpts = append(regOpts, registry.WithLogger(o.logger))
	}
	mw = append(mw, middleware.Recover())
	regOpts = append(regOpts, registry.WithMiddleware(mw...))

	return &Generator{
		cfg:      o.cfg,
		registry: registry.New(regOpts...),
	}, nil
}

// Add resolves the dynamic types of values. It stops at the first failure;
// types resolved before it stay in the document.
func (g *Generator) Add(ctx context.Context, values ...any) error {
	for _, v := range values {
		if v == nil {
			return fmt.Errorf("add: nil value")
		}
		if _, err := g.AddType(ctx, reflect.TypeOf(v)); err != nil {
			return err
		}
	}
	return nil
}

// AddType resolves t and returns its schema, a reference for bound types.
func (g *Generator) AddType(ctx context.Context, t reflect.Type) (*Schema, error) {
	return g.registry.ResolveType(ctx, t)
}

// Registry returns the underlying registry.
func (g *Generator) Registry() *registry.Registry {
	return g.registry
}

// Document assembles every definition resolved so far.
func (g *Generator) Document() (*Document, error) {
	return document.Build(g.registry.Definitions(), g.cfg)
}
