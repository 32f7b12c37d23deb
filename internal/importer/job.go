package importer

import (
	"dataimport/internal/config"
	"dataimport/internal/datasource/file"
	pcsv "dataimport/internal/parser/csv"
	"dataimport/internal/probe"
	"dataimport/internal/storage"
)

// RequestFromJob builds a Request from a job file. Process configuration
// supplies the sample size, the size limit and the sink when the job does
// not name one.
func RequestFromJob(j config.Job, cfg config.Config) Request {
	req := Request{
		Job:    j.Job,
		Entity: j.Entity,
		Source: &file.Local{
			Path:     j.Source.Path,
			Sheet:    j.Source.Sheet,
			MaxBytes: cfg.Import.MaxBytes,
		},
		Parser: pcsv.Options{
			Comma:       probe.DecodeDelimiter(j.Parser.Options.String("comma", ",")),
			DetectComma: j.Parser.Options.String("comma", "") == "auto",
			SampleSize:  j.Parser.Options.Int("sample_size", cfg.Import.SampleSize),
			TrimSpace:   j.Parser.Options.Bool("trim_space", false),
		},
		Overrides:      j.Mappings,
		AcceptDefaults: j.AcceptDefaults,
	}

	sink := storage.Config{Kind: j.Storage.Kind, DSN: j.Storage.DSN, Table: j.Storage.Table}
	if sink.Kind == "" {
		sink = storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN, Table: cfg.Storage.Table}
	}
	if sink.Table == "" {
		sink.Table = cfg.Storage.Table
	}
	if sink.Kind != "" {
		req.Sink = &sink
	}
	return req
}
