package schema

import (
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reference prefixes.
const (
	// ComponentsPrefix points into an OpenAPI components section.
	ComponentsPrefix = "#/components/schemas/"

	// DefsPrefix points into a JSON Schema $defs section.
	DefsPrefix = "#/$defs/"
)

// Properties is an insertion-ordered property map.
type Properties = orderedmap.OrderedMap[string, *Schema]

// Schema represents a JSON Schema.
type Schema struct {
	Ref                  string      `json:"$ref,omitempty"`
	Type                 string      `json:"type,omitempty"`
	Format               string      `json:"format,omitempty"`
	Properties           *Properties `json:"properties,omitempty"`
	AdditionalProperties *Schema     `json:"additionalProperties,omitempty"`
	Required             []string    `json:"required,omitempty"`
	Description          string      `json:"description,omitempty"`
	Default              any         `json:"default,omitempty"`
	Enum                 []any       `json:"enum,omitempty"`
	Minimum              *float64    `json:"minimum,omitempty"`
	Maximum              *float64    `json:"maximum,omitempty"`
	Items                *Schema     `json:"items,omitempty"`
}

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return orderedmap.New[string, *Schema]()
}

// Ref returns a reference to the schema registered under name.
func Ref(prefix, name string) *Schema {
	return &Schema{Ref: prefix + name}
}

// RefName returns the name a reference points to, without its prefix.
func (s *Schema) RefName() string {
	if s == nil || s.Ref == "" {
		return ""
	}
	if i := strings.LastIndexByte(s.Ref, '/'); i >= 0 {
		return s.Ref[i+1:]
	}
	return s.Ref
}

// PropertyNames returns the property names in order.
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for p := s.Properties.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// Property returns the named property schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// SetProperty inserts or replaces a property, keeping its original position
// when it already exists.
func (s *Schema) SetProperty(name string, prop *Schema) {
	if s.Properties == nil {
		s.Properties = NewProperties()
	}
	s.Properties.Set(name, prop)
}

// AddRequired adds name to the required list unless it is already present.
func (s *Schema) AddRequired(name string) {
	for _, r := range s.Required {
		if r == name {
			return
		}
	}
	s.Required = append(s.Required, name)
}

// Generate creates a JSON Schema from a Go value.
func Generate(v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	return generateFromType(t)
}

// GenerateFromType creates a JSON Schema from a reflect.Type.
func GenerateFromType(t reflect.Type) (*Schema, error) {
	return generateFromType(t)
}

func generateFromType(t reflect.Type) (*Schema, error) {
	g := &Generator{}
	g.Resolve = g.Generate
	return g.Generate(t)
}

// Generator maps Go types to schemas without binding metadata.
// Nested types (struct fields, slice elements) are handed to Resolve, which
// lets a registry substitute references for types it knows.
type Generator struct {
	Resolve func(t reflect.Type) (*Schema, error)
}

// Generate maps a single type. A nil type yields a nil schema.
func (g *Generator) Generate(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, nil
	}

	// Handle pointers
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return g.generateStructSchema(t)
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: typeString, Format: "byte"}, nil
		}
		return g.generateArraySchema(t)
	case reflect.Map:
		return g.generateMapSchema(t)
	default:
		return &Schema{}, nil
	}
}

func (g *Generator) resolve(t reflect.Type) (*Schema, error) {
	if g.Resolve == nil {
		return g.Generate(t)
	}
	return g.Resolve(t)
}

func (g *Generator) generateStructSchema(t reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:       typeObject,
		Properties: NewProperties(),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		// Get JSON field name
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
		}

		fieldSchema, err := g.resolve(field.Type)
		if err != nil {
			return nil, err
		}
		if fieldSchema == nil {
			fieldSchema = &Schema{}
		}

		// Descriptions only decorate inline schemas; references are shared.
		if fieldSchema.Ref == "" {
			parseJSONSchemaTag(field.Tag.Get("jsonschema"), fieldSchema, &schema.Required, fieldName)
		} else {
			parseJSONSchemaTag(field.Tag.Get("jsonschema"), &Schema{}, &schema.Required, fieldName)
		}

		schema.Properties.Set(fieldName, fieldSchema)
	}

	return schema, nil
}

func (g *Generator) generateArraySchema(t reflect.Type) (*Schema, error) {
	itemSchema, err := g.resolve(t.Elem())
	if err != nil {
		return nil, err
	}

	return &Schema{
		Type:  typeArray,
		Items: itemSchema,
	}, nil
}

// generateMapSchema maps the value type to additionalProperties. Interface
// values leave it open.
func (g *Generator) generateMapSchema(t reflect.Type) (*Schema, error) {
	s := &Schema{Type: typeObject}
	if t.Elem().Kind() == reflect.Interface {
		return s, nil
	}

	values, err := g.resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	s.AdditionalProperties = values
	return s, nil
}

func parseJSONSchemaTag(tag string, schema *Schema, required *[]string, fieldName string) {
	if tag == "" {
		return
	}

	parts := strings.Split(tag, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)

		if part == "required" {
			*required = append(*required, fieldName)
			continue
		}

		if strings.HasPrefix(part, "description=") {
			schema.Description = strings.TrimPrefix(part, "description=")
			continue
		}
	}
}
