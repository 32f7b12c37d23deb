package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var embedded embed.FS

// tableFile is the on-disk shape of one entity table.
type tableFile struct {
	Entity string `yaml:"entity"`
	Fields []struct {
		Name     string   `yaml:"name"`
		Type     string   `yaml:"type"`
		Required bool     `yaml:"required"`
		Options  []string `yaml:"options"`
	} `yaml:"fields"`
	Defaults map[string]any `yaml:"defaults"`
}

type table struct {
	schema   EntitySchema
	defaults Defaults
	raw      []byte
}

var tables = sync.OnceValue(func() map[string]table {
	t, err := loadTables(embedded)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded tables: %v", err))
	}
	return t
})

// loadTables parses every *.yaml file under tables/ in fsys.
func loadTables(fsys fs.FS) (map[string]table, error) {
	names, err := fs.Glob(fsys, "tables/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make(map[string]table, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		t, err := parseTable(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		if _, dup := out[t.schema.Entity]; dup {
			return nil, fmt.Errorf("%s: duplicate entity %q", path.Base(name), t.schema.Entity)
		}
		out[t.schema.Entity] = t
	}
	return out, nil
}

func parseTable(b []byte) (table, error) {
	var tf tableFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return table{}, err
	}
	if tf.Entity == "" {
		return table{}, fmt.Errorf("missing entity")
	}

	s := EntitySchema{Entity: tf.Entity, Fields: make([]Field, 0, len(tf.Fields))}
	seen := make(map[string]struct{}, len(tf.Fields))
	for _, f := range tf.Fields {
		if f.Name == "" {
			return table{}, fmt.Errorf("field without name")
		}
		if _, dup := seen[f.Name]; dup {
			return table{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		typ := FieldType(f.Type)
		if !typ.Valid() {
			return table{}, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		var kind FieldKind = Scalar{}
		switch {
		case typ == TypeEnum && len(f.Options) == 0:
			return table{}, fmt.Errorf("field %q: enum without options", f.Name)
		case typ == TypeEnum:
			kind = Enum{Options: append([]string(nil), f.Options...)}
		case len(f.Options) > 0:
			return table{}, fmt.Errorf("field %q: options on %s field", f.Name, typ)
		}
		s.Fields = append(s.Fields, Field{Name: f.Name, Type: typ, Required: f.Required, Kind: kind})
	}

	for name, v := range tf.Defaults {
		f, ok := s.Field(name)
		if !ok {
			return table{}, fmt.Errorf("default for unknown field %q", name)
		}
		if e, ok := f.Kind.(Enum); ok && !e.Has(fmt.Sprint(v)) {
			return table{}, fmt.Errorf("default %q for %q is not an option", v, name)
		}
	}
	return table{schema: s, defaults: tf.Defaults, raw: b}, nil
}

func canonical(entity string) string { return strings.ToLower(strings.TrimSpace(entity)) }

// Lookup returns the schema for entity.
func Lookup(entity string) (EntitySchema, bool) {
	t, ok := tables()[canonical(entity)]
	if !ok {
		return EntitySchema{}, false
	}
	s := t.schema
	s.Fields = append([]Field(nil), s.Fields...)
	return s, true
}

// Known reports whether entity names a supported entity kind.
func Known(entity string) bool {
	_, ok := tables()[canonical(entity)]
	return ok
}

// DefaultsFor returns a copy of the defaults table of entity. Unknown
// entities yield an empty table.
func DefaultsFor(entity string) Defaults {
	t := tables()[canonical(entity)]
	out := make(Defaults, len(t.defaults))
	for k, v := range t.defaults {
		out[k] = v
	}
	return out
}

// Raw returns the YAML source of the table for entity.
func Raw(entity string) ([]byte, bool) {
	t, ok := tables()[canonical(entity)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), t.raw...), true
}

// Entities lists the supported entity kinds in sorted order.
func Entities() []string {
	t := tables()
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
