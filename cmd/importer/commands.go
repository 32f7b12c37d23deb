package main

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"dataimport/internal/config"
	"dataimport/internal/datasource/file"
	"dataimport/internal/importer"
	"dataimport/internal/mapper"
	pcsv "dataimport/internal/parser/csv"
	"dataimport/internal/probe"
	"dataimport/internal/schema"
	"dataimport/internal/server"
	"dataimport/internal/storage"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// parseFlags are shared by commands that read one file.
type parseFlags struct {
	sampleSize int
	comma      string
	sheet      string
	trim       bool
}

func (p *parseFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.sampleSize, "sample-size", 0, "rows kept as samples (default IMPORT_SAMPLE_SIZE)")
	cmd.Flags().StringVar(&p.comma, "comma", ",", `field delimiter, or "auto" to detect it`)
	cmd.Flags().StringVar(&p.sheet, "sheet", "", "worksheet of an .xlsx file (default first)")
	cmd.Flags().BoolVar(&p.trim, "trim", false, "trim whitespace around cells")
}

func (p *parseFlags) options(a *app) (pcsv.Options, error) {
	n := p.sampleSize
	if n <= 0 {
		n = a.cfg.Import.SampleSize
	}
	opt := pcsv.Options{SampleSize: n, TrimSpace: p.trim}
	if p.comma == "auto" {
		opt.DetectComma = true
		return opt, nil
	}
	if p.comma != `\t` && utf8.RuneCountInString(p.comma) != 1 {
		return pcsv.Options{}, usageError{fmt.Errorf("--comma must be a single character or \"auto\", got %q", p.comma)}
	}
	opt.Comma = probe.DecodeDelimiter(p.comma)
	return opt, nil
}

// readTable reads and parses path.
func (a *app) readTable(cmd *cobra.Command, path string, p *parseFlags) (pcsv.ParsedTable, error) {
	opt, err := p.options(a)
	if err != nil {
		return pcsv.ParsedTable{}, err
	}
	src := &file.Local{Path: path, Sheet: p.sheet, MaxBytes: a.cfg.Import.MaxBytes}
	data, err := src.ReadText(cmd.Context())
	if err != nil {
		return pcsv.ParsedTable{}, err
	}
	return pcsv.ParseBytes(data, opt)
}

func newParseCmd(a *app) *cobra.Command {
	var p parseFlags
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a CSV or XLSX file and print headers, samples and column types",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			t, err := a.readTable(cmd, argv[0], &p)
			if err != nil {
				return err
			}
			return a.writeJSON(t)
		},
	}
	p.register(cmd)
	return cmd
}

func newMapCmd(a *app) *cobra.Command {
	var (
		p      parseFlags
		entity string
	)
	cmd := &cobra.Command{
		Use:   "map --entity E FILE",
		Short: "Propose a column-to-field mapping for FILE",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if entity == "" {
				return usageError{errors.New("--entity is required")}
			}
			t, err := a.readTable(cmd, argv[0], &p)
			if err != nil {
				return err
			}
			res, err := a.svc.MapSchema(entity, t.Headers, t.SampleRows)
			if err != nil {
				return err
			}
			return a.writeJSON(res)
		},
	}
	p.register(cmd)
	cmd.Flags().StringVar(&entity, "entity", "", "entity type: clients or projects (required)")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		p            parseFlags
		entity       string
		mappingsPath string
	)
	cmd := &cobra.Command{
		Use:   "validate --entity E FILE",
		Short: "Map FILE, apply optional overrides and validate the mapping",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if entity == "" {
				return usageError{errors.New("--entity is required")}
			}
			t, err := a.readTable(cmd, argv[0], &p)
			if err != nil {
				return err
			}
			res, err := a.svc.MapSchema(entity, t.Headers, t.SampleRows)
			if err != nil {
				return err
			}
			if mappingsPath != "" {
				overrides, err := readOverrides(mappingsPath)
				if err != nil {
					return usageError{err}
				}
				if res, err = importer.ApplyOverrides(entity, res, t.Headers, t.SampleRows, overrides); err != nil {
					return err
				}
			}
			v, err := a.svc.ValidateData(entity, res.Mappings, t.SampleRows)
			if err != nil {
				return err
			}
			out := struct {
				Mapping    mapper.MappingResult `json:"mapping"`
				Validation any                  `json:"validation"`
			}{res, v}
			if err := a.writeJSON(out); err != nil {
				return err
			}
			if !v.IsValid {
				return errValidationFailed
			}
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().StringVar(&entity, "entity", "", "entity type: clients or projects (required)")
	cmd.Flags().StringVar(&mappingsPath, "mappings", "", "JSON object of column -> field overrides")
	return cmd
}

func readOverrides(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read mappings")
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "decode mappings %s", path)
	}
	return m, nil
}

func newRunCmd(a *app) *cobra.Command {
	var (
		p              parseFlags
		jobPath        string
		entity         string
		listPath       string
		mappingsPath   string
		sink           storage.Config
		acceptDefaults bool
		check          bool
	)
	cmd := &cobra.Command{
		Use:   "run (--job job.json | --entity E FILE...)",
		Short: "Run the full import for a job file or a set of files",
		RunE: func(cmd *cobra.Command, argv []string) error {
			var reqs []importer.Request
			switch {
			case jobPath != "":
				if len(argv) > 0 || entity != "" {
					return usageError{errors.New("--job cannot be combined with --entity or files")}
				}
				req, err := a.jobRequest(jobPath, check)
				if err != nil || check {
					return err
				}
				reqs = append(reqs, req)
			case entity != "":
				paths := argv
				if listPath != "" {
					listed, err := file.ReadList(listPath)
					if err != nil {
						return usageError{err}
					}
					paths = append(paths, listed...)
				}
				if len(paths) == 0 {
					return usageError{errors.New("no input files")}
				}
				opt, err := p.options(a)
				if err != nil {
					return err
				}
				var overrides map[string]string
				if mappingsPath != "" {
					if overrides, err = readOverrides(mappingsPath); err != nil {
						return usageError{err}
					}
				}
				for _, path := range paths {
					req := importer.Request{
						Entity:         entity,
						Source:         &file.Local{Path: path, Sheet: p.sheet, MaxBytes: a.cfg.Import.MaxBytes},
						Parser:         opt,
						Overrides:      overrides,
						AcceptDefaults: acceptDefaults,
					}
					if s := a.sinkFor(sink); s != nil {
						req.Sink = s
					}
					reqs = append(reqs, req)
				}
			default:
				return usageError{errors.New("either --job or --entity is required")}
			}
			return a.runRequests(cmd, reqs)
		},
	}
	p.register(cmd)
	cmd.Flags().StringVar(&jobPath, "job", "", "job file (JSON)")
	cmd.Flags().BoolVar(&check, "check", false, "lint the job file and exit")
	cmd.Flags().StringVar(&entity, "entity", "", "entity type: clients or projects")
	cmd.Flags().StringVar(&listPath, "list", "", "file listing input paths, one per line")
	cmd.Flags().StringVar(&mappingsPath, "mappings", "", "JSON object of column -> field overrides")
	cmd.Flags().BoolVar(&acceptDefaults, "accept-defaults", false, "fill missing required fields from schema defaults")
	cmd.Flags().StringVar(&sink.Kind, "sink", "", "storage kind: sqlite or postgres (default STORAGE_KIND)")
	cmd.Flags().StringVar(&sink.DSN, "dsn", "", "storage DSN (default STORAGE_DSN)")
	cmd.Flags().StringVar(&sink.Table, "table", "", "storage table (default STORAGE_TABLE)")
	return cmd
}

// sinkFor completes flag values from the environment. A nil result means no
// sink.
func (a *app) sinkFor(flags storage.Config) *storage.Config {
	s := flags
	if s.Kind == "" {
		s.Kind = a.cfg.Storage.Kind
		if s.DSN == "" {
			s.DSN = a.cfg.Storage.DSN
		}
	}
	if s.Table == "" {
		s.Table = a.cfg.Storage.Table
	}
	if s.Kind == "" {
		return nil
	}
	return &s
}

// jobRequest loads and lints a job file. Issues go to stderr; errors stop
// the run.
func (a *app) jobRequest(path string, checkOnly bool) (importer.Request, error) {
	j, err := config.LoadJob(path)
	if err != nil {
		return importer.Request{}, usageError{err}
	}
	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintln(a.stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		return importer.Request{}, usageError{fmt.Errorf("job %s is invalid", path)}
	}
	if checkOnly {
		fmt.Fprintf(a.stderr, "job %s is valid\n", path)
	}
	return importer.RequestFromJob(j, a.cfg), nil
}

// batchOutput is one entry of a multi-file run.
type batchOutput struct {
	importer.Report
	Error string `json:"error,omitempty"`
}

func (a *app) runRequests(cmd *cobra.Command, reqs []importer.Request) error {
	if len(reqs) == 1 {
		rep, err := a.svc.Run(cmd.Context(), reqs[0])
		if werr := a.writeJSON(rep); werr != nil {
			return werr
		}
		return err
	}

	results, err := a.svc.RunBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}
	out := make([]batchOutput, len(results))
	var worst error
	for i, r := range results {
		out[i] = batchOutput{Report: r.Report}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			if worst == nil || exitCode(r.Err) > exitCode(worst) {
				worst = r.Err
			}
		}
	}
	if werr := a.writeJSON(out); werr != nil {
		return werr
	}
	return worst
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := server.Config{
				Addr:         a.cfg.HTTPAddr,
				MaxBodyBytes: a.cfg.Import.MaxBytes,
				SampleSize:   a.cfg.Import.SampleSize,
				Debug:        a.cfg.LogLevel == "debug",
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if s := a.sinkFor(storage.Config{}); s != nil {
				cfg.Sink = *s
			}
			return server.New(a.svc, cfg).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema [ENTITY]",
		Short: "Print an entity schema table, or list entities",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if len(argv) == 0 {
				for _, e := range schema.Entities() {
					fmt.Fprintln(a.stdout, e)
				}
				return nil
			}
			entity := argv[0]
			if asJSON {
				s, ok := schema.Lookup(entity)
				if !ok {
					return fmt.Errorf("%w: %q", importer.ErrUnknownEntity, entity)
				}
				return a.writeJSON(struct {
					schema.EntitySchema
					Defaults schema.Defaults `json:"defaults"`
				}{s, schema.DefaultsFor(entity)})
			}
			raw, ok := schema.Raw(entity)
			if !ok {
				return fmt.Errorf("%w: %q", importer.ErrUnknownEntity, entity)
			}
			_, err := a.stdout.Write(raw)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
