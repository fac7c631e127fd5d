package converter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/felixgeelhaar/bindschema/schema"
)

// Reflector maps named Go structs without binding metadata using their json
// tags. Object schemas are defined under the Go type name and referenced;
// structs that reflect to scalars (time.Time) are returned inline.
//
// Nested named types are resolved through the Context, so bound types
// reachable from an unbound struct keep their references.
type Reflector struct {
	prefix string
}

// NewReflector creates the reflecting converter. Only WithRefPrefix applies.
func NewReflector(opts ...Option) *Reflector {
	o := newOptions(opts)
	return &Reflector{prefix: o.prefix}
}

// Resolve implements Converter.
func (c *Reflector) Resolve(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error) {
	root := t.Type
	if root == nil || root.Kind() != reflect.Struct || root.Name() == "" {
		return delegate(t, ctx, next)
	}

	var (
		mapErr   error
		rootSeen bool
		linked   = make(map[string]*schema.Schema)
	)
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	r.Mapper = func(ft reflect.Type) *jsonschema.Schema {
		if ft == root {
			if !rootSeen {
				rootSeen = true
				return nil
			}
			return &jsonschema.Schema{Ref: c.prefix + root.Name()}
		}
		if mapErr != nil || !routable(ft) {
			return nil
		}

		s, err := ctx.Resolve(AnnotatedType{Type: ft})
		if err != nil {
			mapErr = err
			return nil
		}
		if s == nil {
			return nil
		}

		// The Context's result is spliced in after reflection, so
		// placeholders for types still in flight stay linked.
		marker := linkPrefix + strconv.Itoa(len(linked))
		linked[marker] = s
		return &jsonschema.Schema{Ref: marker}
	}

	js := r.ReflectFromType(root)
	if mapErr != nil {
		return nil, mapErr
	}

	model, err := fromJSONSchema(js)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", root, err)
	}
	model = link(model, linked)
	if model.Type != "object" {
		return model, nil
	}

	if err := ctx.Define(root.Name(), model, t); err != nil {
		return nil, err
	}
	return schema.Ref(c.prefix, root.Name()), nil
}

const linkPrefix = "#/$linked/"

// routable reports types worth routing back through the Context: named
// types declared outside the universe scope.
func routable(t reflect.Type) bool {
	return t.Name() != "" && t.PkgPath() != ""
}

func fromJSONSchema(js *jsonschema.Schema) (*schema.Schema, error) {
	dropBooleanSchemas(js)
	data, err := json.Marshal(js)
	if err != nil {
		return nil, fmt.Errorf("encode reflected schema: %w", err)
	}

	var s schema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}
	return &s, nil
}

// link replaces marker references with the schemas they stand for.
func link(s *schema.Schema, linked map[string]*schema.Schema) *schema.Schema {
	if s == nil {
		return nil
	}
	if l, ok := linked[s.Ref]; ok {
		return l
	}
	if s.Properties != nil {
		for p := s.Properties.Oldest(); p != nil; p = p.Next() {
			p.Value = link(p.Value, linked)
		}
	}
	s.Items = link(s.Items, linked)
	s.AdditionalProperties = link(s.AdditionalProperties, linked)
	return s
}

// dropBooleanSchemas clears the true/false schemas invopop uses for
// additionalProperties, which have no counterpart in schema.Schema.
func dropBooleanSchemas(js *jsonschema.Schema) {
	if js == nil {
		return
	}
	if js.AdditionalProperties == jsonschema.TrueSchema || js.AdditionalProperties == jsonschema.FalseSchema {
		js.AdditionalProperties = nil
	}
	dropBooleanSchemas(js.AdditionalProperties)
	dropBooleanSchemas(js.Items)
	if js.Properties != nil {
		for p := js.Properties.Oldest(); p != nil; p = p.Next() {
			dropBooleanSchemas(p.Value)
		}
	}
}
