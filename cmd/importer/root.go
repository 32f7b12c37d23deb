package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dataimport/internal/config"
	"dataimport/internal/importer"
	"dataimport/internal/logging"
	"dataimport/internal/metrics"
	"dataimport/internal/metrics/datadog"
	"dataimport/internal/metrics/prompush"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	// register all backends with the storage factory.
	_ "dataimport/internal/storage/all"
)

// app carries what subcommands share once the root command has loaded the
// configuration.
type app struct {
	stdout, stderr io.Writer

	envFiles []string
	logLevel string

	cfg     config.Config
	log     *logrus.Logger
	svc     *importer.Service
	closers []func()
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	a.shutdown()
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		err = usageError{err}
	}
	if err != nil && err != errValidationFailed {
		fmt.Fprintln(stderr, "error:", err)
	}
	return exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Map, validate and import client and project CSV exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default .env, .env.local)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	cmd.AddCommand(
		newParseCmd(a),
		newMapCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newSchemaCmd(a),
	)
	return cmd
}

// setup loads configuration, logging, metrics and the import service.
func (a *app) setup() error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return usageError{err}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.Configure(cfg.LogLevel, cfg.LogFormat, a.stderr)

	if err := a.setupMetrics(); err != nil {
		a.log.WithError(err).Warn("metrics: backend unavailable; metrics disabled")
	}
	a.svc = importer.New(
		importer.WithLogger(a.log),
		importer.WithWorkers(cfg.Import.Workers),
	)
	return nil
}

// setupMetrics installs the configured backend and registers its flush.
func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	switch m.Backend {
	case "prometheus", "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, GlobalTags: m.DatadogTags})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() { _ = b.Close() })
	case "", "none":
		return nil
	default:
		return fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	a.log.WithFields(logrus.Fields{"backend": m.Backend, "job": m.Job}).Debug("metrics: enabled")
	a.closers = append([]func(){func() {
		if err := metrics.Flush(); err != nil {
			a.log.WithError(err).Warn("metrics: flush failed")
		}
	}}, a.closers...)
	return nil
}

func (a *app) shutdown() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// args wraps a cobra positional-argument check so failures exit as usage
// errors.
func args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}
