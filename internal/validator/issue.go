package validator

import "fmt"

// Severity classifies a finding as blocking (error) or advisory (warning).
type Severity string

const (
	// SeverityError blocks the import.
	SeverityError Severity = "error"
	// SeverityWarning is surfaced to the user but never blocks.
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding about one schema field.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// partition splits issues by severity, keeping their relative order.
func partition(issues []Issue) (errs, warns []Issue) {
	errs, warns = []Issue{}, []Issue{}
	for _, is := range issues {
		if is.Severity == SeverityError {
			errs = append(errs, is)
		} else {
			warns = append(warns, is)
		}
	}
	return errs, warns
}
