package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	t.Run("generates schema for simple struct", func(t *testing.T) {
		type Input struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if schema.Type != "object" {
			t.Errorf("Type = %q, want %q", schema.Type, "object")
		}

		if schema.Properties.Len() != 2 {
			t.Fatalf("expected 2 properties, got %d", schema.Properties.Len())
		}

		nameProp, ok := schema.Property("name")
		if !ok {
			t.Fatal("expected 'name' property")
		}
		if nameProp.Type != "string" {
			t.Errorf("name.Type = %q, want %q", nameProp.Type, "string")
		}

		ageProp, ok := schema.Property("age")
		if !ok {
			t.Fatal("expected 'age' property")
		}
		if ageProp.Type != "integer" {
			t.Errorf("age.Type = %q, want %q", ageProp.Type, "integer")
		}
	})

	t.Run("handles required fields", func(t *testing.T) {
		type Input struct {
			Required string `json:"required" jsonschema:"required"`
			Optional string `json:"optional"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(schema.Required) != 1 {
			t.Fatalf("expected 1 required field, got %d", len(schema.Required))
		}

		if schema.Required[0] != "required" {
			t.Errorf("Required[0] = %q, want %q", schema.Required[0], "required")
		}
	})

	t.Run("handles description", func(t *testing.T) {
		type Input struct {
			Query string `json:"query" jsonschema:"description=Search query string"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		queryProp, _ := schema.Property("query")
		if queryProp.Description != "Search query string" {
			t.Errorf("Description = %q, want %q", queryProp.Description, "Search query string")
		}
	})

	t.Run("handles nested structs", func(t *testing.T) {
		type Address struct {
			City    string `json:"city"`
			Country string `json:"country"`
		}
		type Person struct {
			Name    string  `json:"name"`
			Address Address `json:"address"`
		}

		schema, err := Generate(Person{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		addrProp, ok := schema.Property("address")
		if !ok {
			t.Fatal("expected 'address' property")
		}

		if addrProp.Type != "object" {
			t.Errorf("address.Type = %q, want %q", addrProp.Type, "object")
		}

		if addrProp.Properties.Len() != 2 {
			t.Errorf("expected 2 address properties, got %d", addrProp.Properties.Len())
		}
	})

	t.Run("handles slices", func(t *testing.T) {
		type Input struct {
			Tags []string `json:"tags"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tagsProp, _ := schema.Property("tags")
		if tagsProp.Type != "array" {
			t.Errorf("tags.Type = %q, want %q", tagsProp.Type, "array")
		}

		if tagsProp.Items == nil {
			t.Fatal("expected Items to be set for array")
		}

		if tagsProp.Items.Type != "string" {
			t.Errorf("tags.Items.Type = %q, want %q", tagsProp.Items.Type, "string")
		}
	})

	t.Run("handles boolean", func(t *testing.T) {
		type Input struct {
			Active bool `json:"active"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		activeProp, _ := schema.Property("active")
		if activeProp.Type != "boolean" {
			t.Errorf("active.Type = %q, want %q", activeProp.Type, "boolean")
		}
	})

	t.Run("handles float", func(t *testing.T) {
		type Input struct {
			Price float64 `json:"price"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		priceProp, _ := schema.Property("price")
		if priceProp.Type != "number" {
			t.Errorf("price.Type = %q, want %q", priceProp.Type, "number")
		}
	})

	t.Run("handles pointers", func(t *testing.T) {
		type Input struct {
			Value *string `json:"value"`
		}

		schema, err := Generate(Input{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		valueProp, _ := schema.Property("value")
		if valueProp.Type != "string" {
			t.Errorf("value.Type = %q, want %q", valueProp.Type, "string")
		}
	})
}

func TestSchema_MarshalJSON(t *testing.T) {
	schema := &Schema{
		Type: "object",
		Properties: props(map[string]*Schema{
			"name": {Type: "string", Description: "The name"},
		}),
		Required: []string{"name"},
	}

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}

	if result["type"] != "object" {
		t.Errorf("type = %v, want %q", result["type"], "object")
	}
}

func props(m map[string]*Schema) *Properties {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewProperties()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

func TestSchema_PropertyOrder(t *testing.T) {
	t.Run("marshals properties in insertion order", func(t *testing.T) {
		s := &Schema{Type: "object"}
		s.SetProperty("zip", &Schema{Type: "string"})
		s.SetProperty("street", &Schema{Type: "string"})
		s.SetProperty("city", &Schema{Type: "string"})

		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `{"type":"object","properties":{"zip":{"type":"string"},"street":{"type":"string"},"city":{"type":"string"}}}`
		if string(data) != want {
			t.Errorf("json = %s, want %s", data, want)
		}
	})

	t.Run("replacing a property keeps its position", func(t *testing.T) {
		s := &Schema{}
		s.SetProperty("a", &Schema{Type: "string"})
		s.SetProperty("b", &Schema{Type: "string"})
		s.SetProperty("a", &Schema{Type: "integer"})

		if got := strings.Join(s.PropertyNames(), ","); got != "a,b" {
			t.Errorf("names = %s, want a,b", got)
		}
		if a, _ := s.Property("a"); a.Type != "integer" {
			t.Errorf("a.Type = %q, want integer", a.Type)
		}
	})

	t.Run("unmarshals properties in document order", func(t *testing.T) {
		var s Schema
		data := `{"type":"object","properties":{"b":{"type":"string"},"a":{"$ref":"#/$defs/A"}}}`
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := strings.Join(s.PropertyNames(), ","); got != "b,a" {
			t.Errorf("names = %s, want b,a", got)
		}
		if a, _ := s.Property("a"); a.RefName() != "A" {
			t.Errorf("a.RefName() = %q, want A", a.RefName())
		}
	})

	t.Run("nil schema has no properties", func(t *testing.T) {
		var s *Schema
		if s.PropertyNames() != nil {
			t.Error("expected nil names")
		}
		if _, ok := s.Property("x"); ok {
			t.Error("expected no property")
		}
	})
}

func TestRef(t *testing.T) {
	ref := Ref(ComponentsPrefix, "Address")
	if ref.Ref != "#/components/schemas/Address" {
		t.Errorf("Ref = %q", ref.Ref)
	}
	if ref.RefName() != "Address" {
		t.Errorf("RefName = %q, want Address", ref.RefName())
	}

	data, err := json.Marshal(Ref(DefsPrefix, "Color"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"$ref":"#/$defs/Color"}` {
		t.Errorf("json = %s", data)
	}

	if (&Schema{Type: "string"}).RefName() != "" {
		t.Error("inline schema has no ref name")
	}
}

func TestSchema_AddRequired(t *testing.T) {
	s := &Schema{}
	s.AddRequired("street")
	s.AddRequired("zip")
	s.AddRequired("street")

	if got := strings.Join(s.Required, ","); got != "street,zip" {
		t.Errorf("Required = %s, want street,zip", got)
	}
}

func TestGenerator(t *testing.T) {
	t.Run("routes nested types through Resolve", func(t *testing.T) {
		type Address struct {
			City string `json:"city"`
		}
		type Person struct {
			Home  Address   `json:"home" jsonschema:"required,description=ignored on references"`
			Other []Address `json:"other"`
			Name  string    `json:"name" jsonschema:"description=Full name"`
		}

		var seen []reflect.Type
		g := &Generator{}
		g.Resolve = func(t reflect.Type) (*Schema, error) {
			seen = append(seen, t)
			if t == reflect.TypeOf(Address{}) {
				return Ref(DefsPrefix, "Address"), nil
			}
			return g.Generate(t)
		}

		s, err := g.Generate(reflect.TypeOf(Person{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := s.Property("home")
		if home.Ref != "#/$defs/Address" || home.Description != "" {
			t.Errorf("home = %+v, want bare reference", home)
		}
		other, _ := s.Property("other")
		if other.Type != "array" || other.Items.RefName() != "Address" {
			t.Errorf("other = %+v, want array of Address", other)
		}
		name, _ := s.Property("name")
		if name.Description != "Full name" {
			t.Errorf("name.Description = %q", name.Description)
		}
		if len(s.Required) != 1 || s.Required[0] != "home" {
			t.Errorf("Required = %v, want [home]", s.Required)
		}
		if len(seen) != 4 {
			t.Errorf("Resolve called %d times, want 4", len(seen))
		}
	})

	t.Run("maps byte slices to strings", func(t *testing.T) {
		s, err := GenerateFromType(reflect.TypeOf([]byte{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Type != "string" || s.Format != "byte" {
			t.Errorf("schema = %+v, want byte string", s)
		}
	})

	t.Run("maps map values to additionalProperties", func(t *testing.T) {
		s, err := GenerateFromType(reflect.TypeOf(map[string]int{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Type != "object" || s.AdditionalProperties == nil || s.AdditionalProperties.Type != "integer" {
			t.Errorf("schema = %+v, want object of integers", s)
		}

		open, err := GenerateFromType(reflect.TypeOf(map[string]any{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if open.AdditionalProperties != nil {
			t.Errorf("AdditionalProperties = %+v, want nil for interface values", open.AdditionalProperties)
		}
	})

	t.Run("nil type yields nil schema", func(t *testing.T) {
		s, err := (&Generator{}).Generate(nil)
		if err != nil || s != nil {
			t.Errorf("Generate(nil) = %v, %v; want nil, nil", s, err)
		}
	})

	t.Run("propagates resolve errors", func(t *testing.T) {
		type Input struct {
			Tags []string `json:"tags"`
		}
		wantErr := errors.New("boom")
		g := &Generator{Resolve: func(reflect.Type) (*Schema, error) { return nil, wantErr }}

		_, err := g.Generate(reflect.TypeOf(Input{}))
		if !errors.Is(err, wantErr) {
			t.Errorf("err = %v, want %v", err, wantErr)
		}
	})
}
