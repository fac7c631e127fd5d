package registry

import (
	"context"
	"fmt"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/middleware"
	"github.com/felixgeelhaar/bindschema/schema"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) (*session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session)
	return s, ok
}

// session is one top-level resolution. It implements converter.Context and
// stages definitions and results until the registry commits them.
type session struct {
	r *Registry

	// ctx is the context of the innermost running resolution; nested
	// requests derive from it.
	ctx context.Context

	defs     *definitions
	cache    map[reflect.Type]*schema.Schema
	inflight map[reflect.Type]*pending
}

// pending collects the placeholders handed out for a type whose resolution
// has not finished yet.
type pending struct {
	placeholders []*schema.Schema
}

func newSession(ctx context.Context, r *Registry) *session {
	s := &session{
		r:        r,
		defs:     orderedmap.New[string, Definition](),
		cache:    make(map[reflect.Type]*schema.Schema),
		inflight: make(map[reflect.Type]*pending),
	}
	s.ctx = context.WithValue(ctx, sessionKey{}, s)
	return s
}

// Resolve implements converter.Context.
func (s *session) Resolve(t converter.AnnotatedType) (*schema.Schema, error) {
	return s.resolve(s.ctx, t)
}

// Define implements converter.Context. Defining a name twice for the same
// origin keeps the first definition.
func (s *session) Define(name string, def *schema.Schema, origin converter.AnnotatedType) error {
	existing, ok := s.defs.Get(name)
	if !ok {
		existing, ok = s.r.defined(name)
	}
	if ok {
		if existing.Origin == origin.Type {
			return nil
		}
		s.r.logger.Warn("schema name conflict",
			middleware.F("name", name),
			middleware.F("defined_by", typeName(existing.Origin)),
			middleware.F("requested_by", origin.String()),
		)
		return fmt.Errorf("%w: %q is defined by %s, requested by %s", ErrNameConflict, name, typeName(existing.Origin), origin)
	}

	s.defs.Set(name, Definition{Name: name, Schema: def, Origin: origin.Type})
	return nil
}

func (s *session) resolve(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
	for t.Type != nil && t.Type.Kind() == reflect.Ptr {
		t = converter.AnnotatedType{Type: t.Type.Elem()}
	}
	if t.Type == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res, ok := s.lookup(t.Type); ok {
		return clone(res), nil
	}

	// A type that is still being resolved further up the stack gets a
	// placeholder, filled in once that resolution returns.
	if p, ok := s.inflight[t.Type]; ok {
		ph := &schema.Schema{}
		p.placeholders = append(p.placeholders, ph)
		return ph, nil
	}

	p := &pending{}
	s.inflight[t.Type] = p
	defer delete(s.inflight, t.Type)

	res, err := s.r.handler(ctx, t)
	if err != nil {
		return nil, err
	}

	for _, ph := range p.placeholders {
		if res != nil && res.Ref != "" {
			*ph = schema.Schema{Ref: res.Ref}
		} else {
			*ph = schema.Schema{Type: "object"}
		}
	}

	if res == nil {
		return nil, nil
	}
	s.cache[t.Type] = res
	return clone(res), nil
}

// convert runs the converter chain, falling back to the generic mapping when
// every converter declines.
func (s *session) convert(ctx context.Context, t converter.AnnotatedType) (*schema.Schema, error) {
	prev := s.ctx
	s.ctx = ctx
	defer func() { s.ctx = prev }()

	res, err := s.r.converter.Resolve(t, s, nil)
	if err != nil || res != nil {
		return res, err
	}

	g := &schema.Generator{
		Resolve: func(rt reflect.Type) (*schema.Schema, error) {
			return s.Resolve(converter.AnnotatedType{Type: rt})
		},
	}
	return g.Generate(t.Type)
}

func (s *session) lookup(t reflect.Type) (*schema.Schema, bool) {
	if res, ok := s.cache[t]; ok {
		return res, true
	}
	return s.r.cached(t)
}

// clone returns a shallow copy so callers may decorate a cached result.
func clone(s *schema.Schema) *schema.Schema {
	c := *s
	return &c
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
