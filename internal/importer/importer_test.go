package importer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"dataimport/internal/config"
	"dataimport/internal/datasource"
	"dataimport/internal/datasource/file"
	"dataimport/internal/mapper"
	pcsv "dataimport/internal/parser/csv"
	"dataimport/internal/storage"
	"dataimport/pkg/records"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientsCSV = "Company Name,Status,Email,Tags,Revenue\n" +
	"Acme,Active,a@acme.test,vip;east,\"$1,200\"\n" +
	"Globex,lead,g@globex.test,,\n" +
	"Acme,Active,a@acme.test,vip;east,\"$1,200\"\n" +
	",lead,x@y.test,,\n"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memRepo struct {
	mu     sync.Mutex
	saved  map[string][]records.Record
	closed int
	err    error
}

func (m *memRepo) SaveDocuments(_ context.Context, entity string, docs []records.Record) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]records.Record{}
	}
	m.saved[entity] = append(m.saved[entity], docs...)
	return int64(len(docs)), nil
}

func (m *memRepo) Close() {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

func newService(repo *memRepo) *Service {
	return New(
		WithLogger(quietLogger()),
		WithWorkers(2),
		WithRepositoryFactory(func(context.Context, storage.Config) (storage.Repository, error) {
			return repo, nil
		}),
	)
}

func src(name, content string) datasource.Source {
	return datasource.Bytes{Label: name, Data: []byte(content)}
}

func TestRun_EndToEnd(t *testing.T) {
	repo := &memRepo{}
	s := newService(repo)

	rep, err := s.Run(context.Background(), Request{
		Job:    "q1",
		Entity: "clients",
		Source: src("clients.csv", clientsCSV),
		Overrides: map[string]string{
			"Revenue": "annualRevenue",
		},
		Sink: &storage.Config{Kind: "mem"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, "clients.csv", rep.Source)
	require.NotNil(t, rep.Table)
	assert.Equal(t, 4, rep.Table.TotalRowCount)
	require.NotNil(t, rep.Validation)
	assert.True(t, rep.Validation.IsValid)

	require.NotNil(t, rep.Build)
	assert.Len(t, rep.Build.Records, 2)
	assert.Equal(t, 1, rep.Build.Duplicates)
	require.Len(t, rep.Build.Rejected, 1)
	assert.Equal(t, 5, rep.Build.Rejected[0].Line)

	acme := rep.Build.Records[0]
	assert.Equal(t, "Acme", acme["companyName"])
	assert.Equal(t, "active", acme["status"])
	assert.Equal(t, 1200.0, acme["annualRevenue"])
	assert.Equal(t, []string{"vip", "east"}, acme["tags"])
	assert.Equal(t, false, acme["emailOptIn"])

	assert.EqualValues(t, 2, rep.Stored)
	assert.Len(t, repo.saved["clients"], 2)
	assert.Equal(t, 1, repo.closed)
}

func TestRun_UnknownEntity(t *testing.T) {
	s := newService(&memRepo{})
	_, err := s.Run(context.Background(), Request{Entity: "invoices", Source: src("x.csv", "a\n1\n")})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRun_ParseError(t *testing.T) {
	s := newService(&memRepo{})
	rep, err := s.Run(context.Background(), Request{Entity: "clients", Source: src("bad.csv", "a,b\n\"x,1\n")})
	var pe *pcsv.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Nil(t, rep.Table)
}

func TestRun_InvalidMappingStopsBeforeSink(t *testing.T) {
	repo := &memRepo{}
	s := newService(repo)

	rep, err := s.Run(context.Background(), Request{
		Entity: "clients",
		Source: src("c.csv", "Company Name\nAcme\n"),
		Sink:   &storage.Config{Kind: "mem"},
	})
	require.ErrorIs(t, err, ErrInvalidMapping)
	require.NotNil(t, rep.Validation)
	assert.Equal(t, []string{"status"}, rep.Validation.MissingRequiredFields)
	assert.Nil(t, rep.Build)
	assert.Empty(t, repo.saved)
}

func TestRun_AcceptDefaults(t *testing.T) {
	s := newService(&memRepo{})

	rep, err := s.Run(context.Background(), Request{
		Entity:         "clients",
		Source:         src("c.csv", "Company Name\nAcme\n"),
		AcceptDefaults: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"status"}, rep.DefaultsApplied)
	require.Len(t, rep.Build.Records, 1)
	assert.Equal(t, "lead", rep.Build.Records[0]["status"])

	// companyName has no default, so accepting defaults cannot help.
	_, err = s.Run(context.Background(), Request{
		Entity:         "clients",
		Source:         src("c.csv", "Status\nlead\n"),
		AcceptDefaults: true,
	})
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestRun_SinkError(t *testing.T) {
	boom := errors.New("disk full")
	s := newService(&memRepo{err: boom})

	_, err := s.Run(context.Background(), Request{
		Entity: "clients",
		Source: src("c.csv", "Company Name,Status\nAcme,lead\n"),
		Sink:   &storage.Config{Kind: "mem"},
	})
	assert.ErrorIs(t, err, ErrSink)
	assert.ErrorIs(t, err, boom)
}

func TestRun_ReadError(t *testing.T) {
	s := newService(&memRepo{})
	_, err := s.Run(context.Background(), Request{
		Entity: "clients",
		Source: file.NewLocal("/does/not/exist.csv"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidMapping)
}

func TestRunBatch_IsolatesFailures(t *testing.T) {
	s := newService(&memRepo{})

	reqs := []Request{
		{Entity: "clients", Source: src("a.csv", "Company,Status\nAcme,lead\n")},
		{Entity: "nope", Source: src("b.csv", "x\n1\n")},
		{Entity: "projects", Source: src("c.csv", "Project Name,Client,Status,Project Type\nSite,c-1,active,retainer\n")},
	}
	res, err := s.RunBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.NoError(t, res[0].Err)
	assert.ErrorIs(t, res[1].Err, ErrUnknownEntity)
	require.NoError(t, res[2].Err)
	assert.Equal(t, "projects", res[2].Report.Entity)
	require.Len(t, res[2].Report.Build.Records, 1)
	assert.Equal(t, "c-1", res[2].Report.Build.Records[0]["clientId"])
}

func TestRunBatch_CanceledContext(t *testing.T) {
	s := newService(&memRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RunBatch(ctx, []Request{{Entity: "clients", Source: src("a.csv", "a\n")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceStages(t *testing.T) {
	s := newService(&memRepo{})

	table, err := s.ParseCSV("Client,Project Name\nc-1,Site\n", 5)
	require.NoError(t, err)

	res, err := s.MapSchema("projects", table.Headers, table.SampleRows)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"status", "projectType"}, res.MissingRequiredFields)

	v, err := s.ValidateData("projects", res.Mappings, table.SampleRows)
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, res.MissingRequiredFields, v.MissingRequiredFields)

	_, err = s.MapSchema("nope", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = s.ValidateData("nope", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestApplyOverrides(t *testing.T) {
	headers := []string{"Company", "Label", "Notes"}
	samples := []records.Sample{{"Company": "Acme", "Label": "Active", "Notes": "n"}}
	proposed := mapper.MapSchema("clients", headers, samples)
	require.Contains(t, proposed.UnmappedColumns, "Label")

	got, err := ApplyOverrides("clients", proposed, headers, samples, map[string]string{
		"Label": "status",
		"Notes": "",
	})
	require.NoError(t, err)

	var fields []string
	for _, m := range got.Mappings {
		fields = append(fields, m.CSVColumn+"->"+m.SchemaField)
	}
	assert.Equal(t, []string{"Company->companyName", "Label->status"}, fields)
	assert.Equal(t, []string{"Notes"}, got.UnmappedColumns)
	assert.Empty(t, got.MissingRequiredFields)
	require.NotNil(t, got.Mappings[1].SampleValue)
	assert.Equal(t, "Active", *got.Mappings[1].SampleValue)
	assert.Equal(t, 1.0, got.Mappings[1].Confidence)

	// Rebinding a field releases the column that held it.
	got, err = ApplyOverrides("clients", proposed, headers, samples, map[string]string{"Notes": "companyName"})
	require.NoError(t, err)
	assert.Contains(t, got.UnmappedColumns, "Company")
	assert.Equal(t, []string{"status"}, got.MissingRequiredFields)

	_, err = ApplyOverrides("clients", proposed, headers, samples, map[string]string{"Missing": "email"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	_, err = ApplyOverrides("clients", proposed, headers, samples, map[string]string{"Notes": "nope"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	_, err = ApplyOverrides("nope", proposed, headers, samples, nil)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRequestFromJob(t *testing.T) {
	cfg := config.Config{
		Import:  config.ImportOptions{SampleSize: 7, MaxBytes: 1024},
		Storage: config.StorageOptions{Kind: "sqlite", DSN: "env.db", Table: "docs"},
	}
	j := config.Job{
		Job:      "q1",
		Entity:   "clients",
		Source:   config.Source{Path: "in.xlsx", Sheet: "S"},
		Parser:   config.Parser{Options: config.Options{"comma": ";"}},
		Mappings: map[string]string{"A": "email"},
	}

	req := RequestFromJob(j, cfg)
	assert.Equal(t, ';', req.Parser.Comma)
	assert.Equal(t, 7, req.Parser.SampleSize)
	loc, ok := req.Source.(*file.Local)
	require.True(t, ok)
	assert.Equal(t, file.Local{Path: "in.xlsx", Sheet: "S", MaxBytes: 1024}, *loc)
	require.NotNil(t, req.Sink)
	assert.Equal(t, storage.Config{Kind: "sqlite", DSN: "env.db", Table: "docs"}, *req.Sink)

	j.Storage = config.Storage{Kind: "postgres", DSN: "pg"}
	req = RequestFromJob(j, cfg)
	assert.Equal(t, storage.Config{Kind: "postgres", DSN: "pg", Table: "docs"}, *req.Sink)

	req = RequestFromJob(j, config.Config{})
	assert.Equal(t, "postgres", req.Sink.Kind)
	j.Storage = config.Storage{}
	assert.Nil(t, RequestFromJob(j, config.Config{}).Sink)
}
