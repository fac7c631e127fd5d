// Package testutil provides testing utilities for converters.
//
// It offers an in-memory converter.Context that records every resolution
// and definition, and assertion helpers for schema output.
//
// Example usage:
//
//	func TestMyConverter(t *testing.T) {
//	    ctx := testutil.NewContext(t, myConverter)
//
//	    ref := ctx.MustResolve(reflect.TypeOf(Address{}))
//	    testutil.AssertJSON(t, ref, `{"$ref":"#/components/schemas/Address"}`)
//	    testutil.AssertJSON(t, ctx.Definition("Address"), `{"type":"object",...}`)
//	}
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/felixgeelhaar/bindschema/converter"
	"github.com/felixgeelhaar/bindschema/schema"
)

// Definition is one recorded Define call.
type Definition struct {
	Name   string
	Schema *schema.Schema
	Origin converter.AnnotatedType
}

// Context is an in-memory converter.Context for tests.
//
// Resolve runs the converter under test for every request and falls back to
// schema.Generator when it declines. Results are not cached, so cyclic type
// graphs must be tested against a real registry.
type Context struct {
	t         testing.TB
	converter converter.Converter

	mu       sync.Mutex
	resolved []converter.AnnotatedType
	defined  []Definition
}

// NewContext creates a recording context around c. A nil converter makes
// every type fall through to the generic mapping.
func NewContext(t testing.TB, c converter.Converter) *Context {
	t.Helper()
	return &Context{t: t, converter: c}
}

// Resolve implements converter.Context.
func (c *Context) Resolve(t converter.AnnotatedType) (*schema.Schema, error) {
	c.mu.Lock()
	c.resolved = append(c.resolved, t)
	c.mu.Unlock()

	if t.Type == nil {
		return nil, nil
	}
	if t.Type.Kind() == reflect.Ptr {
		t = converter.AnnotatedType{Type: t.Type.Elem()}
	}

	if c.converter != nil {
		s, err := c.converter.Resolve(t, c, nil)
		if err != nil || s != nil {
			return s, err
		}
	}

	g := &schema.Generator{}
	g.Resolve = func(rt reflect.Type) (*schema.Schema, error) {
		return c.Resolve(converter.AnnotatedType{Type: rt})
	}
	return g.Generate(t.Type)
}

// Define implements converter.Context. Redefining a name for a different
// origin type is an error.
func (c *Context) Define(name string, s *schema.Schema, origin converter.AnnotatedType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range c.defined {
		if d.Name == name && d.Origin.Type != origin.Type {
			return fmt.Errorf("%s already defined by %s", name, d.Origin)
		}
	}
	c.defined = append(c.defined, Definition{Name: name, Schema: s, Origin: origin})
	return nil
}

// MustResolve resolves t and fails the test on error.
func (c *Context) MustResolve(t reflect.Type) *schema.Schema {
	c.t.Helper()

	s, err := c.Resolve(converter.AnnotatedType{Type: t})
	if err != nil {
		c.t.Fatalf("resolve %v: %v", t, err)
	}
	return s
}

// Resolved returns every recorded Resolve request in call order.
func (c *Context) Resolved() []converter.AnnotatedType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]converter.AnnotatedType(nil), c.resolved...)
}

// Defined returns every recorded Define call in call order.
func (c *Context) Defined() []Definition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Definition(nil), c.defined...)
}

// Definition returns the last schema defined under name. It fails the test
// when nothing was defined under that name.
func (c *Context) Definition(name string) *schema.Schema {
	c.t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.defined) - 1; i >= 0; i-- {
		if c.defined[i].Name == name {
			return c.defined[i].Schema
		}
	}
	c.t.Fatalf("no definition named %q", name)
	return nil
}

// AssertJSON asserts that got encodes to the same JSON as want, including
// object key order.
func AssertJSON(t testing.TB, got any, want string) {
	t.Helper()

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(want)); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}

	if string(data) != compact.String() {
		t.Errorf("json mismatch\n got: %s\nwant: %s", data, compact.String())
	}
}

// AssertPropertyOrder asserts the property names of s, in order.
func AssertPropertyOrder(t testing.TB, s *schema.Schema, want ...string) {
	t.Helper()

	got := s.PropertyNames()
	if len(got) != len(want) {
		t.Errorf("properties = %v, want %v", got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("properties = %v, want %v", got, want)
			return
		}
	}
}
