package document

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"

	"github.com/felixgeelhaar/bindschema/schema"
)

// Layout selects the shape of the generated document.
type Layout string

// Supported layouts.
const (
	// LayoutOpenAPI places definitions under components.schemas of an
	// OpenAPI document.
	LayoutOpenAPI Layout = "openapi"

	// LayoutJSONSchema places definitions under $defs of a JSON Schema
	// 2020-12 document.
	LayoutJSONSchema Layout = "jsonschema"
)

// openAPIVersions is the range of OpenAPI versions whose components section
// this package writes.
const openAPIVersions = ">= 3.0.0, < 4.0.0"

// Config describes the generated document.
type Config struct {
	Layout Layout `yaml:"layout"`

	// OpenAPI is the version written to the openapi field.
	OpenAPI string `yaml:"openapi"`

	// Title and Version fill the OpenAPI info object. Title also becomes
	// the title of a JSON Schema document.
	Title   string `yaml:"title"`
	Version string `yaml:"version"`

	// ID is the $id of a JSON Schema document.
	ID string `yaml:"id"`

	// Sort orders definitions by name instead of registration order.
	Sort bool `yaml:"sort"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Layout:  LayoutOpenAPI,
		OpenAPI: "3.1.0",
		Title:   "Schemas",
		Version: "1.0.0",
	}
}

// LoadConfig reads a YAML configuration file. Fields it omits keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	// An empty or comment-only document decodes as null, which would zero
	// the defaults.
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if len(keys) > 0 {
		if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the layout and, for OpenAPI documents, the version.
func (c Config) Validate() error {
	switch c.Layout {
	case LayoutJSONSchema:
		return nil
	case LayoutOpenAPI:
	default:
		return fmt.Errorf("invalid config: unknown layout %q", c.Layout)
	}

	if c.Title == "" {
		return errors.New("invalid config: openapi layout requires a title")
	}

	v, err := semver.NewVersion(c.OpenAPI)
	if err != nil {
		return fmt.Errorf("invalid config: openapi version %q: %w", c.OpenAPI, err)
	}
	constraint, err := semver.NewConstraint(openAPIVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("invalid config: openapi version %s is not %s", v, openAPIVersions)
	}
	return nil
}

// RefPrefix returns the reference prefix matching the layout.
func (c Config) RefPrefix() string {
	if c.Layout == LayoutJSONSchema {
		return schema.DefsPrefix
	}
	return schema.ComponentsPrefix
}
