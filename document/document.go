// Package document assembles registered definitions into an OpenAPI or
// JSON Schema document.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/felixgeelhaar/bindschema/registry"
	"github.com/felixgeelhaar/bindschema/schema"
)

// JSONSchemaDialect is the $schema of documents in the JSON Schema layout.
const JSONSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// ErrDanglingRef is returned when a definition references a schema the
// document does not contain.
var ErrDanglingRef = errors.New("dangling schema reference")

type schemas = orderedmap.OrderedMap[string, *schema.Schema]

// Document is an assembled schema document.
type Document struct {
	cfg  Config
	defs *schemas
}

// Build assembles definitions into a document. References must use the
// prefix of cfg's layout and point at one of the definitions.
func Build(defs []registry.Definition, cfg Config) (*Document, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Sort {
		defs = append([]registry.Definition(nil), defs...)
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	}

	d := &Document{cfg: cfg, defs: orderedmap.New[string, *schema.Schema]()}
	for _, def := range defs {
		d.defs.Set(def.Name, def.Schema)
	}

	for p := d.defs.Oldest(); p != nil; p = p.Next() {
		if err := d.checkRefs(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Document) checkRefs(path string, s *schema.Schema) error {
	if s == nil {
		return nil
	}
	if s.Ref != "" {
		if _, ok := d.Lookup(s.Ref); !ok {
			return fmt.Errorf("%w: %s references %s", ErrDanglingRef, path, s.Ref)
		}
		return nil
	}
	if s.Properties != nil {
		for p := s.Properties.Oldest(); p != nil; p = p.Next() {
			if err := d.checkRefs(path+"."+p.Key, p.Value); err != nil {
				return err
			}
		}
	}
	if err := d.checkRefs(path+"{}", s.AdditionalProperties); err != nil {
		return err
	}
	return d.checkRefs(path+"[]", s.Items)
}

// Config returns the document configuration.
func (d *Document) Config() Config {
	return d.cfg
}

// Names returns the definition names in document order.
func (d *Document) Names() []string {
	names := make([]string, 0, d.defs.Len())
	for p := d.defs.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// Schema returns the definition named name.
func (d *Document) Schema(name string) (*schema.Schema, bool) {
	return d.defs.Get(name)
}

// Lookup implements schema.Resolver for references in the document's layout.
func (d *Document) Lookup(ref string) (*schema.Schema, bool) {
	name, ok := strings.CutPrefix(ref, d.cfg.RefPrefix())
	if !ok {
		return nil, false
	}
	return d.defs.Get(name)
}

// Validate validates a JSON instance against the definition named name,
// following references within the document.
func (d *Document) Validate(name string, data []byte) error {
	s, ok := d.defs.Get(name)
	if !ok {
		return fmt.Errorf("no schema named %q", name)
	}
	return s.ValidateWith(d, data)
}

type openAPIDocument struct {
	OpenAPI    string         `json:"openapi"`
	Info       openAPIInfo    `json:"info"`
	Paths      map[string]any `json:"paths"`
	Components openAPIParts   `json:"components"`
}

type openAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type openAPIParts struct {
	Schemas *schemas `json:"schemas"`
}

type jsonSchemaDocument struct {
	Schema string   `json:"$schema"`
	ID     string   `json:"$id,omitempty"`
	Title  string   `json:"title,omitempty"`
	Defs   *schemas `json:"$defs"`
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.cfg.Layout == LayoutJSONSchema {
		return json.Marshal(jsonSchemaDocument{
			Schema: JSONSchemaDialect,
			ID:     d.cfg.ID,
			Title:  d.cfg.Title,
			Defs:   d.defs,
		})
	}
	return json.Marshal(openAPIDocument{
		OpenAPI:    d.cfg.OpenAPI,
		Info:       openAPIInfo{Title: d.cfg.Title, Version: d.cfg.Version},
		Paths:      map[string]any{},
		Components: openAPIParts{Schemas: d.defs},
	})
}

// JSON returns the document as indented JSON.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML returns the document as YAML, keeping key order.
func (d *Document) YAML() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(data)
}
