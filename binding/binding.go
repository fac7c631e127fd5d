// Package binding describes how Go types bind to an XML representation.
//
// A Descriptor exposes the binding metadata of one Go type: the type-level
// schema name and property order, the declared fields with their element,
// attribute or character-data bindings, and, for enumerations, the declared
// constants with their optional lexical overrides.
//
// Descriptors come from a Source. Tags reads struct tags and the
// Enumeration interface; Overrides layers an external bindings file on top
// of Tags for types that cannot carry annotations themselves.
package binding

import "reflect"

// DefaultName is the element name sentinel meaning "use the field name".
const DefaultName = "##default"

// TypeBinding is the type-level binding metadata.
type TypeBinding struct {
	// Name is the schema name the type is registered under.
	Name string

	// Order lists property names in their declared order. Properties not
	// listed keep their encounter order after the listed ones.
	Order []string
}

// Element binds a field to a child element.
type Element struct {
	Name     string
	Required bool
}

// Attribute binds a field to an attribute.
type Attribute struct {
	Name     string
	Required bool
}

// Field is one declared field of a composite type.
type Field struct {
	// Name is the declared Go field name.
	Name string

	// Type is the declared field type.
	Type reflect.Type

	// Static marks fields that carry no instance data (unexported fields,
	// the XMLName carrier and fields tagged xml:"-").
	Static bool

	Element   *Element
	Attribute *Attribute

	// Value marks the field holding the type's character data.
	Value bool
}

// Enum is the binding of an enumeration type.
type Enum struct {
	// Name is the schema name. An empty name leaves the type unbound.
	Name string `yaml:"name"`

	// Constants lists the constant names in declaration order.
	Constants []string `yaml:"constants"`

	// Values maps a constant name to its lexical value when it differs
	// from the constant name.
	Values map[string]string `yaml:"values"`
}

// Override returns the lexical override for a constant, if any.
func (e Enum) Override(constant string) (string, bool) {
	v, ok := e.Values[constant]
	return v, ok
}

// Enumeration is implemented by named types bound as enumerations.
//
//	type Color string
//
//	func (Color) XMLEnum() binding.Enum {
//	    return binding.Enum{
//	        Name:      "Color",
//	        Constants: []string{"RED", "GREEN"},
//	        Values:    map[string]string{"GREEN": "verde"},
//	    }
//	}
type Enumeration interface {
	XMLEnum() Enum
}

// Descriptor exposes the binding metadata of a single type.
type Descriptor interface {
	// Type returns the described Go type. It may be nil.
	Type() reflect.Type

	// Binding returns the type-level metadata. ok is false when the type
	// carries no binding.
	Binding() (b TypeBinding, ok bool)

	// Enum returns the enumeration binding, if the type is an enumeration.
	Enum() (e Enum, ok bool)

	// Fields returns the declared fields in declaration order.
	Fields() []Field
}

// Source produces descriptors for Go types.
type Source interface {
	Describe(t reflect.Type) Descriptor
}

// Declared is a Descriptor assembled from explicit values.
type Declared struct {
	GoType      reflect.Type
	TypeBinding *TypeBinding
	EnumBinding *Enum
	FieldList   []Field
}

// Type implements Descriptor.
func (d *Declared) Type() reflect.Type { return d.GoType }

// Binding implements Descriptor.
func (d *Declared) Binding() (TypeBinding, bool) {
	if d.TypeBinding == nil {
		return TypeBinding{}, false
	}
	return *d.TypeBinding, true
}

// Enum implements Descriptor.
func (d *Declared) Enum() (Enum, bool) {
	if d.EnumBinding == nil {
		return Enum{}, false
	}
	return *d.EnumBinding, true
}

// Fields implements Descriptor.
func (d *Declared) Fields() []Field { return d.FieldList }

// TypeKey returns the key a type is known by in a bindings file:
// the package path and the type name joined by a dot.
func TypeKey(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
