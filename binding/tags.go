package binding

import (
	"reflect"
	"strings"
)

// Struct tag keys.
const (
	// TagXML is the standard encoding/xml tag.
	TagXML = "xml"

	// TagBind carries the metadata encoding/xml has no room for:
	// type=<name> and order=<a b c> on the XMLName field, required on
	// element and attribute fields.
	TagBind = "xmlbind"
)

const xmlNameField = "XMLName"

var enumerationType = reflect.TypeOf((*Enumeration)(nil)).Elem()

// Tags reads binding metadata from struct tags.
//
//	type Address struct {
//	    XMLName xml.Name `xml:"address" xmlbind:"type=Address,order=zip street"`
//	    Street  string   `xml:"street" xmlbind:"required"`
//	    Zip     string   `xml:"zip"`
//	    Country string   `xml:"country,attr"`
//	}
//
// A struct is bound when its XMLName field carries an xmlbind tag. The type
// name defaults to the Go type name. Fields of untagged embedded structs are
// listed as fields of the embedding struct. Named types implementing
// Enumeration are bound as enumerations.
type Tags struct{}

// Describe implements Source.
func (Tags) Describe(t reflect.Type) Descriptor {
	d := &Declared{GoType: t}
	if t == nil {
		return d
	}

	if e, ok := enumerationOf(t); ok {
		if e.Name != "" {
			d.TypeBinding = &TypeBinding{Name: e.Name}
			d.EnumBinding = &e
		}
		return d
	}

	if t.Kind() != reflect.Struct {
		return d
	}

	d.TypeBinding = typeBinding(t)
	d.FieldList = fields(t)
	return d
}

func enumerationOf(t reflect.Type) (Enum, bool) {
	switch {
	case t.Kind() == reflect.Interface:
		return Enum{}, false
	case t.Implements(enumerationType):
		return reflect.Zero(t).Interface().(Enumeration).XMLEnum(), true
	case reflect.PointerTo(t).Implements(enumerationType):
		return reflect.New(t).Interface().(Enumeration).XMLEnum(), true
	}
	return Enum{}, false
}

func typeBinding(t reflect.Type) *TypeBinding {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name != xmlNameField {
			continue
		}
		tag, ok := sf.Tag.Lookup(TagBind)
		if !ok {
			return nil
		}
		opts := parseBindTag(tag)
		b := &TypeBinding{Name: opts.values["type"]}
		if b.Name == "" {
			b.Name = t.Name()
		}
		if order := opts.values["order"]; order != "" {
			b.Order = strings.Fields(order)
		}
		return b
	}
	return nil
}

func fields(t reflect.Type) []Field {
	return appendFields(nil, t, map[reflect.Type]bool{})
}

// appendFields appends the fields of t. Untagged embedded structs are
// flattened into their parent, as encoding/xml does.
func appendFields(result []Field, t reflect.Type, seen map[reflect.Type]bool) []Field {
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		xmlTag, hasXML := sf.Tag.Lookup(TagXML)

		if sf.Anonymous && !hasXML {
			et := sf.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && !seen[et] {
				result = appendFields(result, et, seen)
				continue
			}
		}

		f := Field{
			Name:   sf.Name,
			Type:   sf.Type,
			Static: !sf.IsExported() || sf.Name == xmlNameField || xmlTag == "-",
		}
		if f.Static || !hasXML {
			result = append(result, f)
			continue
		}

		required := parseBindTag(sf.Tag.Get(TagBind)).flags["required"]
		name, flags := splitXMLTag(xmlTag)

		switch {
		case flags["attr"]:
			if name == "" {
				name = sf.Name
			}
			f.Attribute = &Attribute{Name: name, Required: required}
		case flags["chardata"]:
			f.Value = true
		default:
			if name == "" {
				name = DefaultName
			}
			f.Element = &Element{Name: name, Required: required}
		}
		result = append(result, f)
	}
	return result
}

// splitXMLTag splits an encoding/xml tag into its local name and flags.
// A namespace prefix ("ns local") is dropped.
func splitXMLTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		name = name[i+1:]
	}

	flags := make(map[string]bool, len(parts)-1)
	for _, p := range parts[1:] {
		flags[strings.TrimSpace(p)] = true
	}
	return name, flags
}

type bindOptions struct {
	flags  map[string]bool
	values map[string]string
}

func parseBindTag(tag string) bindOptions {
	opts := bindOptions{
		flags:  make(map[string]bool),
		values: make(map[string]string),
	}
	if tag == "" {
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if k, v, ok := strings.Cut(part, "="); ok {
			opts.values[k] = strings.TrimSpace(v)
			continue
		}
		opts.flags[part] = true
	}
	return opts
}
