// Package schema provides the JSON Schema model shared by converters, the
// registry and document assembly, plus the generic mapping of Go types.
//
// # Schema Model
//
// Schema covers the subset of JSON Schema the generator emits:
//
//	type Schema struct {
//	    Ref                  string      `json:"$ref,omitempty"`
//	    Type                 string      `json:"type,omitempty"`
//	    Format               string      `json:"format,omitempty"`
//	    Properties           *Properties `json:"properties,omitempty"`
//	    AdditionalProperties *Schema     `json:"additionalProperties,omitempty"`
//	    Required             []string    `json:"required,omitempty"`
//	    Enum                 []any       `json:"enum,omitempty"`
//	    Items                *Schema     `json:"items,omitempty"`
//	    ...
//	}
//
// Properties is an insertion-ordered map (wk8/go-ordered-map), so the
// encoded property order is the order properties were set in. Use
// SetProperty, Property and PropertyNames rather than touching the map.
//
// # References
//
// Ref builds a reference to a named definition. ComponentsPrefix points into
// an OpenAPI components section, DefsPrefix into a JSON Schema $defs section:
//
//	schema.Ref(schema.ComponentsPrefix, "Address") // {"$ref":"#/components/schemas/Address"}
//	schema.Ref(schema.DefsPrefix, "Address")       // {"$ref":"#/$defs/Address"}
//
// # Generic Mapping
//
// Generator maps types that carry no binding metadata:
//
//   - Structs: objects, properties named by their json tags
//   - Strings, integers, floats, booleans: the matching JSON type
//   - Byte slices: strings with format "byte"
//   - Slices/Arrays: arrays of the element schema
//   - Maps: objects whose additionalProperties is the value schema
//   - Pointers: dereferenced
//
// Nested types are passed to Generator.Resolve, so a registry can substitute
// references for the types it defines:
//
//	g := &schema.Generator{
//	    Resolve: func(t reflect.Type) (*schema.Schema, error) {
//	        return registry.ResolveType(ctx, t)
//	    },
//	}
//	s, err := g.Generate(reflect.TypeOf(Point{}))
//
// Generate and GenerateFromType run a Generator that maps nested types inline.
// The jsonschema struct tag marks fields required and adds descriptions:
//
//	type Person struct {
//	    Name string `json:"name" jsonschema:"required,description=Full name"`
//	}
//
// # Validation
//
// Validate checks a JSON instance against a schema. ValidateWith follows
// references through a Resolver, such as an assembled document.
package schema
