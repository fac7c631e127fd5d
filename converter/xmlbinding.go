package converter

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/felixgeelhaar/bindschema/binding"
	"github.com/felixgeelhaar/bindschema/schema"
)

// ValueProperty is the property name of a type's character data.
const ValueProperty = "$"

// ErrEnumConstant reports an enumeration whose constants and overrides
// cannot be correlated. It is never recovered from.
var ErrEnumConstant = errors.New("malformed enumeration constant")

type kind int

const (
	kindUnhandled kind = iota
	kindComposite
	kindEnumeration
)

// XMLBinding converts types carrying XML binding metadata.
//
// Bound composites become object schemas and bound enumerations become
// string schemas with an enum value set. Both are defined in the Context
// under their binding name and a reference is returned. Unbound types are
// passed to the next converter unchanged.
type XMLBinding struct {
	source binding.Source
	prefix string
}

// NewXMLBinding creates the XML binding converter.
func NewXMLBinding(opts ...Option) *XMLBinding {
	o := newOptions(opts)
	return &XMLBinding{
		source: o.source,
		prefix: o.prefix,
	}
}

// Resolve implements Converter.
func (c *XMLBinding) Resolve(t AnnotatedType, ctx Context, next Next) (*schema.Schema, error) {
	d := c.source.Describe(t.Type)

	var (
		model *schema.Schema
		err   error
	)
	k, b := classify(d)
	switch k {
	case kindEnumeration:
		e, _ := d.Enum()
		model, err = enumSchema(e)
	case kindComposite:
		model, err = c.objectSchema(d, b, ctx)
	default:
		return delegate(t, ctx, next)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name, err)
	}

	if err := ctx.Define(b.Name, model, t); err != nil {
		return nil, err
	}
	return schema.Ref(c.prefix, b.Name), nil
}

func classify(d binding.Descriptor) (kind, binding.TypeBinding) {
	b, ok := d.Binding()
	if !ok {
		return kindUnhandled, b
	}
	if _, ok := d.Enum(); ok {
		return kindEnumeration, b
	}
	return kindComposite, b
}

func enumSchema(e binding.Enum) (*schema.Schema, error) {
	values, err := enumValues(e)
	if err != nil {
		return nil, err
	}
	return &schema.Schema{Type: "string", Enum: values}, nil
}

// enumValues returns one lexical value per constant in declaration order.
func enumValues(e binding.Enum) ([]any, error) {
	declared := make(map[string]bool, len(e.Constants))
	values := make([]any, 0, len(e.Constants))

	for _, c := range e.Constants {
		if c == "" || declared[c] {
			return nil, fmt.Errorf("%w: constant %q declared twice or unnamed", ErrEnumConstant, c)
		}
		declared[c] = true

		if v, ok := e.Override(c); ok {
			values = append(values, v)
		} else {
			values = append(values, c)
		}
	}

	var stray []string
	for c := range e.Values {
		if !declared[c] {
			stray = append(stray, c)
		}
	}
	if len(stray) > 0 {
		sort.Strings(stray)
		return nil, fmt.Errorf("%w: value override for undeclared constant %q", ErrEnumConstant, stray[0])
	}
	return values, nil
}

func (c *XMLBinding) objectSchema(d binding.Descriptor, b binding.TypeBinding, ctx Context) (*schema.Schema, error) {
	model := &schema.Schema{
		Type:       "object",
		Properties: schema.NewProperties(),
	}

	for _, f := range d.Fields() {
		if f.Static {
			continue
		}

		prop, err := fieldSchema(f, ctx)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}

		name := f.Name
		switch {
		case f.Element != nil && f.Element.Name != binding.DefaultName:
			name = f.Element.Name
			if f.Element.Required {
				model.AddRequired(name)
			}
		case f.Attribute != nil:
			name = f.Attribute.Name
			if f.Attribute.Required {
				model.AddRequired(name)
			}
		case f.Value:
			name = ValueProperty
		}
		model.SetProperty(name, prop)
	}

	if len(b.Order) > 0 {
		model.Properties = reorder(model.Properties, b.Order)
	}
	return model, nil
}

// fieldSchema resolves a field's type through the Context, wrapping it in an
// array schema when the field is a collection.
func fieldSchema(f binding.Field, ctx Context) (*schema.Schema, error) {
	ft := indirect(f.Type)
	if isCollection(ft) {
		items, err := ctx.Resolve(AnnotatedType{Type: elementType(ft)})
		if err != nil {
			return nil, err
		}
		return &schema.Schema{Type: "array", Items: items}, nil
	}

	s, err := ctx.Resolve(AnnotatedType{Type: f.Type})
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &schema.Schema{}
	}
	return s, nil
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// isCollection reports homogeneous collections. Byte slices are binary
// content, not collections.
func isCollection(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// elementType unwraps one level of collection. A nested collection resolves
// as its own raw type; an interface element cannot be determined and yields
// nil.
func elementType(t reflect.Type) reflect.Type {
	e := indirect(t.Elem())
	if e.Kind() == reflect.Interface {
		return nil
	}
	return e
}

// reorder places the properties named in order first, in that order, then
// the remaining properties in their encounter order. Names absent from
// props are skipped.
func reorder(props *schema.Properties, order []string) *schema.Properties {
	sorted := schema.NewProperties()
	for _, key := range order {
		if v, ok := props.Get(key); ok {
			sorted.Set(key, v)
		}
	}
	for p := props.Oldest(); p != nil; p = p.Next() {
		if _, ok := sorted.Get(p.Key); !ok {
			sorted.Set(p.Key, p.Value)
		}
	}
	return sorted
}
