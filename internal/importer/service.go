// Package importer runs the import pipeline: read, parse, map, validate,
// build and optionally store. Stages are synchronous; concurrency exists only
// across independent runs (RunBatch).
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dataimport/internal/datasource"
	"dataimport/internal/logging"
	"dataimport/internal/mapper"
	"dataimport/internal/metrics"
	pcsv "dataimport/internal/parser/csv"
	"dataimport/internal/schema"
	"dataimport/internal/storage"
	"dataimport/internal/transformer"
	"dataimport/internal/validator"
	"dataimport/pkg/records"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Step names used in logs and metrics.
const (
	StepRead     = "read"
	StepParse    = "parse"
	StepMap      = "map"
	StepValidate = "validate"
	StepBuild    = "build"
	StepSink     = "sink"
)

// DefaultWorkers bounds RunBatch when the service was built without one.
const DefaultWorkers = 4

// RepositoryFactory opens a sink. storage.New is used by default.
type RepositoryFactory func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

// Service runs imports. The zero value is not usable; call New.
type Service struct {
	log     *logrus.Logger
	mapper  *mapper.Mapper
	workers int
	openFn  RepositoryFactory
}

// Option configures a Service.
type Option func(*Service)

// WithLogger replaces the package logger.
func WithLogger(l *logrus.Logger) Option { return func(s *Service) { s.log = l } }

// WithMapper replaces the default mapper.
func WithMapper(m *mapper.Mapper) Option { return func(s *Service) { s.mapper = m } }

// WithWorkers bounds the number of concurrent runs in RunBatch.
func WithWorkers(n int) Option { return func(s *Service) { s.workers = n } }

// WithRepositoryFactory replaces storage.New.
func WithRepositoryFactory(f RepositoryFactory) Option { return func(s *Service) { s.openFn = f } }

// New returns a Service.
func New(opts ...Option) *Service {
	s := &Service{
		log:     logging.Logger(),
		mapper:  mapper.New(),
		workers: DefaultWorkers,
		openFn:  storage.New,
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	return s
}

// ParseCSV parses text content.
func (s *Service) ParseCSV(content string, sampleSize int) (pcsv.ParsedTable, error) {
	start := time.Now()
	t, err := pcsv.ParseCSV(content, sampleSize)
	metrics.RecordStep("api", StepParse, err, time.Since(start))
	return t, err
}

// MapSchema proposes a mapping for headers.
func (s *Service) MapSchema(entity string, headers []string, samples []records.Sample) (mapper.MappingResult, error) {
	if !schema.Known(entity) {
		return mapper.MappingResult{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	start := time.Now()
	res := s.mapper.Map(entity, headers, samples)
	metrics.RecordStep("api", StepMap, nil, time.Since(start))
	return res, nil
}

// ValidateData validates a (possibly edited) mapping.
func (s *Service) ValidateData(entity string, mappings []mapper.FieldMapping, samples []records.Sample) (validator.Result, error) {
	if !schema.Known(entity) {
		return validator.Result{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	start := time.Now()
	res := validator.ValidateData(entity, mappings, samples)
	metrics.RecordStep("api", StepValidate, nil, time.Since(start))
	metrics.RecordIssues("api", string(validator.SeverityError), len(res.Errors))
	metrics.RecordIssues("api", string(validator.SeverityWarning), len(res.Warnings))
	return res, nil
}

// Request describes one import run.
type Request struct {
	// Job names the run in logs and metrics. Defaults to the entity.
	Job    string
	Entity string
	Source datasource.Source
	Parser pcsv.Options

	// Overrides are applied to the proposed mapping; see ApplyOverrides.
	Overrides map[string]string

	// AcceptDefaults lets a run proceed when every missing required field
	// has a suggested default; the builder fills those fields.
	AcceptDefaults bool

	// Sink, when set, receives the built records.
	Sink *storage.Config
}

// Report is the outcome of Run. Fields are filled as far as the run got.
type Report struct {
	RunID      string                   `json:"runId"`
	Job        string                   `json:"job"`
	Entity     string                   `json:"entity"`
	Source     string                   `json:"source,omitempty"`
	Table      *pcsv.ParsedTable        `json:"table,omitempty"`
	Mapping    *mapper.MappingResult    `json:"mapping,omitempty"`
	Validation *validator.Result        `json:"validation,omitempty"`
	Build      *transformer.BuildResult `json:"build,omitempty"`
	Stored     int64                    `json:"stored"`

	// DefaultsApplied lists required fields filled from defaults because
	// the request accepted them.
	DefaultsApplied []string `json:"defaultsApplied,omitempty"`
}

// Run executes one import. It stops at the first failing stage and returns
// the partial report with the error. A mapping that does not validate stops
// the run before build with ErrInvalidMapping.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Job: req.Job, Entity: req.Entity}
	if rep.Job == "" {
		rep.Job = req.Entity
	}
	if !schema.Known(req.Entity) {
		return rep, fmt.Errorf("%w: %q", ErrUnknownEntity, req.Entity)
	}
	if req.Source == nil {
		return rep, errors.New("importer: request has no source")
	}
	rep.Source = req.Source.Name()

	log := s.log.WithFields(logrus.Fields{
		"job":    rep.Job,
		"run_id": rep.RunID,
		"entity": rep.Entity,
		"source": rep.Source,
	})
	runStart := time.Now()

	step := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		d := time.Since(start)
		metrics.RecordStep(rep.Job, name, err, d)
		e := log.WithFields(logrus.Fields{"step": name, "elapsed": d.Truncate(time.Microsecond).String()})
		if err != nil {
			e.WithError(err).Warn("import step failed")
		} else {
			e.Debug("import step done")
		}
		return err
	}

	var data []byte
	if err := step(StepRead, func() (err error) {
		data, err = req.Source.ReadText(ctx)
		return err
	}); err != nil {
		return rep, err
	}

	if err := step(StepParse, func() error {
		t, err := pcsv.ParseBytes(data, req.Parser)
		if err != nil {
			return err
		}
		rep.Table = &t
		return nil
	}); err != nil {
		return rep, err
	}
	metrics.RecordRows(rep.Job, "parsed", rep.Table.TotalRowCount)
	for _, w := range rep.Table.Warnings {
		log.WithField("line", w.Line).Warn(w.Message)
	}

	if err := step(StepMap, func() error {
		res := s.mapper.Map(req.Entity, rep.Table.Headers, rep.Table.SampleRows)
		res, err := ApplyOverrides(req.Entity, res, rep.Table.Headers, rep.Table.SampleRows, req.Overrides)
		if err != nil {
			return err
		}
		rep.Mapping = &res
		return nil
	}); err != nil {
		return rep, err
	}

	_ = step(StepValidate, func() error {
		v := validator.ValidateData(req.Entity, rep.Mapping.Mappings, rep.Table.SampleRows)
		rep.Validation = &v
		return nil
	})
	metrics.RecordIssues(rep.Job, string(validator.SeverityError), len(rep.Validation.Errors))
	metrics.RecordIssues(rep.Job, string(validator.SeverityWarning), len(rep.Validation.Warnings))
	if !rep.Validation.IsValid && req.AcceptDefaults && coveredByDefaults(*rep.Validation) {
		rep.DefaultsApplied = rep.Validation.MissingRequiredFields
		log.WithField("fields", rep.DefaultsApplied).Info("filling missing required fields from defaults")
	} else if !rep.Validation.IsValid {
		log.WithFields(logrus.Fields{
			"errors":  len(rep.Validation.Errors),
			"missing": rep.Validation.MissingRequiredFields,
		}).Warn("mapping is not valid; stopping before build")
		return rep, fmt.Errorf("%w: %d error(s)", ErrInvalidMapping, len(rep.Validation.Errors))
	}

	_ = step(StepBuild, func() error {
		b := transformer.Build(req.Entity, rep.Mapping.Mappings, schema.DefaultsFor(req.Entity), rep.Table.Rows)
		rep.Build = &b
		return nil
	})
	metrics.RecordRows(rep.Job, "built", len(rep.Build.Records))
	metrics.RecordRows(rep.Job, "rejected", len(rep.Build.Rejected))
	metrics.RecordRows(rep.Job, "duplicate", rep.Build.Duplicates)

	if req.Sink != nil && req.Sink.Kind != "" {
		if err := step(StepSink, func() error {
			n, err := s.store(ctx, req.Entity, *req.Sink, rep.Build.Records)
			rep.Stored = n
			return err
		}); err != nil {
			return rep, fmt.Errorf("%w: %w", ErrSink, err)
		}
		metrics.RecordRows(rep.Job, "stored", int(rep.Stored))
	}

	log.WithFields(logrus.Fields{
		"rows":       rep.Table.TotalRowCount,
		"built":      len(rep.Build.Records),
		"rejected":   len(rep.Build.Rejected),
		"duplicates": rep.Build.Duplicates,
		"stored":     rep.Stored,
		"elapsed":    time.Since(runStart).Truncate(time.Millisecond).String(),
	}).Info("import finished")
	return rep, nil
}

// coveredByDefaults reports whether the only errors are missing required
// fields that all have a suggested default.
func coveredByDefaults(v validator.Result) bool {
	if len(v.MissingRequiredFields) == 0 || len(v.Errors) != len(v.MissingRequiredFields) {
		return false
	}
	for _, f := range v.MissingRequiredFields {
		if _, ok := v.SuggestedDefaults[f]; !ok {
			return false
		}
	}
	return true
}

func (s *Service) store(ctx context.Context, entity string, cfg storage.Config, docs []records.Record) (int64, error) {
	repo, err := s.openFn(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()
	return repo.SaveDocuments(ctx, entity, docs)
}

// BatchResult pairs a Run outcome with its request index.
type BatchResult struct {
	Report Report
	Err    error
}

// RunBatch runs independent requests concurrently, at most the configured
// number at a time. A failing request does not stop the others. Results are
// returned in request order. The returned error is non-nil only when ctx
// ends before every request started.
func (s *Service) RunBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	out := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return out, err
		}
		g.Go(func() error {
			rep, err := s.Run(ctx, req)
			out[i] = BatchResult{Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}
