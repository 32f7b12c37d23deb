// Package schema holds the fixed target schemas of the importer.
//
// Two entity kinds are supported, clients and projects. Their field lists and
// default values ship as YAML tables embedded in the binary and are parsed
// once on first use. Everything returned from this package is a copy or an
// immutable value, so callers may share it across goroutines.
package schema

import "encoding/json"

// Entity kinds.
const (
	Clients  = "clients"
	Projects = "projects"
)

// Field names the mapper gives special treatment to.
const (
	FieldCompanyName = "companyName"
	FieldClientID    = "clientId"
)

// FieldType is the declared value type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeEnum    FieldType = "enum"
	TypeArray   FieldType = "array"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeEnum, TypeArray, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// FieldKind separates enum fields, which carry their options, from every
// other field. Use a type switch to tell them apart.
type FieldKind interface{ fieldKind() }

// Enum is the kind of a field restricted to a fixed option list.
type Enum struct {
	Options []string
}

// Scalar is the kind of every non-enum field.
type Scalar struct{}

func (Enum) fieldKind()   {}
func (Scalar) fieldKind() {}

// Has reports whether v is one of the declared options. Matching is exact.
func (e Enum) Has(v string) bool {
	for _, o := range e.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Field is one target field of an entity schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Kind     FieldKind
}

// Options returns the enum options of f, or nil for scalar fields.
func (f Field) Options() []string {
	if e, ok := f.Kind.(Enum); ok {
		return append([]string(nil), e.Options...)
	}
	return nil
}

// MarshalJSON flattens the kind into an "options" list.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string    `json:"name"`
		Type     FieldType `json:"type"`
		Required bool      `json:"required"`
		Options  []string  `json:"options,omitempty"`
	}{f.Name, f.Type, f.Required, f.Options()})
}

// EntitySchema is the ordered field list of one entity kind.
type EntitySchema struct {
	Entity string  `json:"entity"`
	Fields []Field `json:"fields"`
}

// Field returns the field called name.
func (s EntitySchema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required returns the required fields in schema order.
func (s EntitySchema) Required() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Defaults maps field names to the value used when a required field has no
// source column.
type Defaults map[string]any
