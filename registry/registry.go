// Package registry implements the schema registry: the table of named
// definitions and the reentrant converter.Context that fills it.
//
// A top-level Resolve starts a session. Every nested type the converters
// ask for is resolved in the same session, through the configured
// middleware, and the definitions it produces are committed to the registry
// only when the top-level resolution succeeds.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/middleware"
	"github.com/felixgeelhaar/bindschema/schema"
)

// ErrNameConflict is returned when two different types define the same
// schema name.
var ErrNameConflict = errors.New("schema name already defined")

// Definition is a registered schema.
type Definition struct {
	Name   string
	Schema *schema.Schema
	// Origin is the type the definition was produced for.
	Origin reflect.Type
}

type definitions = orderedmap.OrderedMap[string, Definition]

// Registry maps Go types to schemas and keeps every named definition
// produced along the way.
//
// Top-level resolutions are serialised; lookups may run concurrently with
// them and observe only committed definitions.
type Registry struct {
	mu sync.Mutex // serialises sessions

	converter converter.Converter
	handler   middleware.HandlerFunc
	logger    middleware.Logger

	state sync.RWMutex
	defs  *definitions
	cache map[reflect.Type]*schema.Schema
}

// New creates a registry.
func New(opts ...Option) *Registry {
	o := &options{
		logger: middleware.NopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.converters == nil {
		o.converters = []converter.Converter{
			converter.NewXMLBinding(),
			converter.NewReflector(),
		}
	}

	r := &Registry{
		converter: converter.Chain(o.converters...),
		logger:    o.logger,
		defs:      orderedmap.New[string, Definition](),
		cache:     make(map[reflect.Type]*schema.Schema),
	}
	r.handler = middleware.Chain(o.middleware...)(r.dispatch)
	return r
}

// Resolve maps t to a schema. Handled types yield a reference to their
// definition; other types yield an inline schema. A nil type yields nil.
//
// On error no definition from this resolution is kept.
func (r *Registry) Resolve(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := newSession(ctx, r)
	res, err := s.resolve(s.ctx, t)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", t, err)
	}

	r.commit(s)
	return res, nil
}

// ResolveType is Resolve for a bare reflect.Type.
func (r *Registry) ResolveType(ctx context.Context, t reflect.Type) (*schema.Schema, error) {
	return r.Resolve(ctx, converter.AnnotatedType{Type: t})
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*schema.Schema, bool) {
	r.state.RLock()
	defer r.state.RUnlock()

	d, ok := r.defs.Get(name)
	if !ok {
		return nil, false
	}
	return d.Schema, true
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.state.RLock()
	defer r.state.RUnlock()

	defs := make([]Definition, 0, r.defs.Len())
	for p := r.defs.Oldest(); p != nil; p = p.Next() {
		defs = append(defs, p.Value)
	}
	return defs
}

// Names returns the definition names in registration order.
func (r *Registry) Names() []string {
	r.state.RLock()
	defer r.state.RUnlock()

	names := make([]string, 0, r.defs.Len())
	for p := r.defs.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.state.RLock()
	defer r.state.RUnlock()
	return r.defs.Len()
}

// dispatch is the innermost handler: it runs the converter chain for one
// type inside the session carried by ctx.
func (r *Registry) dispatch(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
	s, ok := sessionFrom(ctx)
	if !ok {
		return nil, errors.New("registry: resolution outside of a session")
	}
	return s.convert(ctx, t)
}

// defined returns the committed definition for name.
func (r *Registry) defined(name string) (Definition, bool) {
	r.state.RLock()
	defer r.state.RUnlock()
	return r.defs.Get(name)
}

func (r *Registry) cached(t reflect.Type) (*schema.Schema, bool) {
	r.state.RLock()
	defer r.state.RUnlock()
	s, ok := r.cache[t]
	return s, ok
}

func (r *Registry) commit(s *session) {
	r.state.Lock()
	defer r.state.Unlock()

	for p := s.defs.Oldest(); p != nil; p = p.Next() {
		r.defs.Set(p.Key, p.Value)
	}
	for t, res := range s.cache {
		r.cache[t] = res
	}

	if n := s.defs.Len(); n > 0 {
		r.logger.Debug("definitions committed", middleware.F("count", n), middleware.F("total", r.defs.Len()))
	}
}
