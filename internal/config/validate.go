package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"dataimport/internal/schema"
)

// IssueSeverity represents the severity of a job file issue.
type IssueSeverity string

const (
	// SeverityError indicates a problem that should block the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates something worth surfacing that does not
	// block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Job.
//
// Path is a dotted path into the job file (e.g. "storage.kind",
// "mappings.Firma").
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains an error-severity issue.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob performs static validation of a Job. It does not touch the
// filesystem or any database.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; runs will be labeled with the file name",
		})
	}
	if strings.TrimSpace(j.Entity) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "entity",
			Message:  "entity must not be empty",
		})
	} else if !schema.Known(j.Entity) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "entity",
			Message:  fmt.Sprintf("unknown entity %q; expected one of %s", j.Entity, strings.Join(schema.Entities(), ", ")),
		})
	}

	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateParser(j.Parser)...)
	issues = append(issues, validateMappings(j.Entity, j.Mappings)...)
	issues = append(issues, validateStorage(j.Storage)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	kind := s.Kind
	if kind == "" {
		kind = "file"
	}
	if kind != "file" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q", s.Kind),
		})
		return issues
	}

	if strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.path",
			Message:  "file source requires a non-empty path",
		})
		return issues
	}

	ext := strings.ToLower(filepath.Ext(s.Path))
	switch ext {
	case ".csv", ".txt", ".tsv":
	case ".xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.path",
			Message:  fmt.Sprintf("unrecognized extension %q; the file will be read as CSV text", ext),
		})
	}
	if s.Sheet != "" && ext != ".xlsx" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.sheet",
			Message:  "sheet is only used for .xlsx sources",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if v, ok := p.Options["comma"]; ok {
		s, isStr := v.(string)
		switch {
		case isStr && (s == "auto" || s == `\t`):
		case !isStr || utf8.RuneCountInString(s) != 1:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  `comma must be a single character or "auto"`,
			})
		case s == `"` || s == "\n" || s == "\r":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  fmt.Sprintf("comma %q cannot be used as a delimiter", s),
			})
		}
	}
	if n := p.Options.Int("sample_size", 0); n < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.sample_size",
			Message:  "sample_size must not be negative",
		})
	}
	return issues
}

func validateMappings(entity string, m map[string]string) []Issue {
	if len(m) == 0 {
		return nil
	}
	s, ok := schema.Lookup(entity)
	if !ok {
		// Reported on "entity" already.
		return nil
	}

	var issues []Issue
	columns := make([]string, 0, len(m))
	for c := range m {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	claimedBy := map[string]string{}
	for _, col := range columns {
		field := m[col]
		path := "mappings." + col
		if field == "" {
			continue
		}
		if _, ok := s.Field(field); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("%s has no field %q", s.Entity, field),
			})
			continue
		}
		if prev, dup := claimedBy[field]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("field %q is already mapped from column %q", field, prev),
			})
			continue
		}
		claimedBy[field] = col
	}
	return issues
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		if s.DSN != "" || s.Table != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.kind",
				Message:  "storage.dsn/table are set but storage.kind is empty; nothing will be written",
			})
		}
		return issues
	}

	switch s.Kind {
	case "sqlite", "postgres":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; expected sqlite or postgres", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}
	if s.Table != "" && !tableName.MatchString(s.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.table",
			Message:  fmt.Sprintf("table %q is not a valid identifier", s.Table),
		})
	}
	return issues
}
