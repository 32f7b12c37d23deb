// Package metrics records operational metrics for import runs through a
// pluggable backend.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete backends live in subpackages (prompush, datadog) and are
// installed once at startup with SetBackend. Backends must be safe for
// concurrent use: batch runs and HTTP handlers record in parallel.
package metrics

import "time"

// Metric names.
const (
	StepTotal           = "import_step_total"
	StepDurationSeconds = "import_step_duration_seconds"
	RowsTotal           = "import_rows_total"
	IssuesTotal         = "import_issues_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline step (parse, map, validate,
// build, sink) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments a row-level counter. Kinds used by the importer:
//   - "parsed"
//   - "built"
//   - "rejected"
//   - "duplicate"
//   - "stored"
func RecordRows(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(n), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordIssues counts validation issues of one severity.
func RecordIssues(job, severity string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(IssuesTotal, float64(n), Labels{
		"job":      job,
		"severity": severity,
	})
}
