// Package config holds the two configuration surfaces of the importer: the
// process environment (Config, see env.go) and JSON job files describing one
// import run (Job).
//
// Example job file:
//
//	{
//	  "job": "clients-2024-q1",
//	  "entity": "clients",
//	  "source":   { "kind": "file", "path": "exports/clients.xlsx", "sheet": "Sheet1" },
//	  "parser":   { "options": { "comma": ";", "sample_size": 10, "trim_space": true } },
//	  "mappings": { "Firma": "companyName", "Notes (old)": "" },
//	  "storage":  { "kind": "sqlite", "dsn": "file:import.db", "table": "documents" }
//	}
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Job describes one import run.
type Job struct {
	// Job names the run for logs and metrics.
	Job string `json:"job"`

	// Entity is the target entity kind ("clients" or "projects").
	Entity string `json:"entity"`

	Source Source `json:"source"`
	Parser Parser `json:"parser"`

	// Mappings overrides the proposed mapping, keyed by CSV column. A value
	// names the schema field the column feeds; an empty value leaves the
	// column unmapped.
	Mappings map[string]string `json:"mappings,omitempty"`

	// AcceptDefaults fills missing required fields from schema defaults
	// instead of failing validation.
	AcceptDefaults bool `json:"acceptDefaults,omitempty"`

	Storage Storage `json:"storage"`
}

// Source identifies the input file.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string `json:"kind"`

	// Path is the local filesystem path to a .csv or .xlsx file.
	Path string `json:"path"`

	// Sheet names the worksheet of an .xlsx file. Empty means the first.
	Sheet string `json:"sheet,omitempty"`
}

// Parser carries CSV options. Recognized keys: comma (string),
// sample_size (int), trim_space (bool).
type Parser struct {
	Options Options `json:"options"`
}

// Storage selects the sink for the built record set. An empty Kind means
// the run stops after building.
type Storage struct {
	Kind  string `json:"kind,omitempty"`
	DSN   string `json:"dsn,omitempty"`
	Table string `json:"table,omitempty"`
}

// LoadJob reads and decodes a job file.
func LoadJob(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, errors.Wrapf(err, "read job %s", path)
	}
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, errors.Wrapf(err, "decode job %s", path)
	}
	if j.Parser.Options == nil {
		j.Parser.Options = Options{}
	}
	return j, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It returns the provided default when a key is absent or of an unexpected
// type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
