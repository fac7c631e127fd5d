package binding

import (
	"fmt"
	"os"
	"reflect"

	"github.com/goccy/go-yaml"
)

// Overrides is an external bindings file. It attaches binding metadata to
// Go types that cannot be annotated, and replaces the metadata of those that
// are. Types it does not mention are described by the fallback source.
//
//	types:
//	  example.com/shop.Address:
//	    name: Address
//	    order: [zip, street]
//	    fields:
//	      Street: {element: street, required: true}
//	      Country: {attribute: country}
//	enums:
//	  example.com/shop.Color:
//	    name: Color
//	    constants: [RED, GREEN]
//	    values: {GREEN: verde}
type Overrides struct {
	Types map[string]TypeOverride `yaml:"types"`
	Enums map[string]Enum         `yaml:"enums"`

	fallback Source
}

// TypeOverride binds a composite type.
type TypeOverride struct {
	// Name defaults to the Go type name.
	Name   string                   `yaml:"name"`
	Order  []string                 `yaml:"order"`
	Fields map[string]FieldOverride `yaml:"fields"`
}

// FieldOverride replaces the binding of one field, keyed by Go field name.
type FieldOverride struct {
	Element   string `yaml:"element"`
	Attribute string `yaml:"attribute"`
	Value     bool   `yaml:"value"`
	Required  bool   `yaml:"required"`
	Skip      bool   `yaml:"skip"`
}

// LoadOverrides reads a bindings file from disk.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes a bindings file. Unknown keys are rejected.
func ParseOverrides(data []byte) (*Overrides, error) {
	o := &Overrides{}
	if err := yaml.UnmarshalWithOptions(data, o, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse bindings: %w", err)
	}
	for key, e := range o.Enums {
		if len(e.Constants) == 0 {
			return nil, fmt.Errorf("parse bindings: enum %q declares no constants", key)
		}
	}
	for key, t := range o.Types {
		for field, f := range t.Fields {
			if f.kinds() > 1 {
				return nil, fmt.Errorf("parse bindings: field %s.%s binds more than one of element, attribute, value", key, field)
			}
		}
	}
	return o, nil
}

// WithFallback sets the source used for types the file does not mention and
// for the field list of overridden composites. It defaults to Tags.
func (o *Overrides) WithFallback(s Source) *Overrides {
	o.fallback = s
	return o
}

// Describe implements Source.
func (o *Overrides) Describe(t reflect.Type) Descriptor {
	fallback := o.fallback
	if fallback == nil {
		fallback = Tags{}
	}
	if t == nil {
		return fallback.Describe(t)
	}

	key := TypeKey(t)
	if e, ok := o.Enums[key]; ok {
		if e.Name == "" {
			e.Name = t.Name()
		}
		return &Declared{
			GoType:      t,
			TypeBinding: &TypeBinding{Name: e.Name},
			EnumBinding: &e,
		}
	}

	base := fallback.Describe(t)
	to, ok := o.Types[key]
	if !ok || t.Kind() != reflect.Struct {
		return base
	}

	d := &Declared{
		GoType:      t,
		TypeBinding: &TypeBinding{Name: to.Name, Order: to.Order},
	}
	if d.TypeBinding.Name == "" {
		d.TypeBinding.Name = t.Name()
	}

	for _, f := range base.Fields() {
		if fo, ok := to.Fields[f.Name]; ok && !f.Static {
			f = fo.apply(f)
		}
		d.FieldList = append(d.FieldList, f)
	}
	return d
}

func (fo FieldOverride) kinds() int {
	n := 0
	if fo.Element != "" {
		n++
	}
	if fo.Attribute != "" {
		n++
	}
	if fo.Value {
		n++
	}
	return n
}

// apply replaces the binding of f. An override that only sets required
// keeps the field's existing binding and name.
func (fo FieldOverride) apply(f Field) Field {
	if fo.Required && !fo.Skip && fo.kinds() == 0 {
		return require(f)
	}

	f.Element, f.Attribute, f.Value = nil, nil, false
	switch {
	case fo.Skip:
		f.Static = true
	case fo.Attribute != "":
		f.Attribute = &Attribute{Name: fo.Attribute, Required: fo.Required}
	case fo.Value:
		f.Value = true
	case fo.Element != "":
		f.Element = &Element{Name: fo.Element, Required: fo.Required}
	}
	return f
}

func require(f Field) Field {
	switch {
	case f.Attribute != nil:
		f.Attribute = &Attribute{Name: f.Attribute.Name, Required: true}
	case f.Value:
	case f.Element != nil && f.Element.Name != DefaultName:
		f.Element = &Element{Name: f.Element.Name, Required: true}
	default:
		f.Element = &Element{Name: f.Name, Required: true}
	}
	return f
}
