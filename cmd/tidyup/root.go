package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"tidyup/internal/config"
	"tidyup/internal/history"
	"tidyup/internal/logging"
	"tidyup/internal/metrics"
	"tidyup/internal/orchestrator"
	"tidyup/internal/organizer"
	"tidyup/internal/output"
)

// errReported marks a failure that has already been shown to the user;
// it only sets the exit status.
var errReported = errors.New("reported")

type globalOptions struct {
	ConfigPath  string
	HistoryPath string
	Debug       bool
	JSON        bool
	Verbose     bool
}

// app carries the state shared by every subcommand of one invocation.
type app struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer
	isTTY  bool
	now    func() time.Time

	cfg     *config.Config
	logger  *zap.Logger
	logPath string
	out     *output.Output
	store   history.Store
}

func newApp(stdout, stderr io.Writer) *app {
	isTTY := false
	if f, ok := stdout.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &app{
		stdout: stdout,
		stderr: stderr,
		isTTY:  isTTY,
		now:    time.Now,
		logger: zap.NewNop(),
	}
}

// run executes args and returns the process exit status.
func run(ctx context.Context, args []string, a *app) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		a.output().Error("Error: %v", err)
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tidyup",
		Short: "tidyup sorts a folder's files into category subfolders",
		Long: "tidyup moves the files at the top level of a folder into subfolders named after\n" +
			"their type (Images, Documents, Videos, ...), records every run so it can be undone,\n" +
			"and reports on what a directory tree contains.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "Configuration file (default "+config.DefaultPath()+")")
	flags.StringVar(&a.opts.HistoryPath, "history", "", "History log path, overriding the configuration")
	flags.BoolVar(&a.opts.Debug, "debug", false, "Log at debug level to stderr as well as the log file")
	flags.BoolVar(&a.opts.JSON, "json", false, "Output as JSON")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Show detailed output")

	root.AddCommand(
		newOrganizeCmd(a),
		newUndoCmd(a),
		newHistoryCmd(a),
		newScanCmd(a),
		newReportCmd(a),
		newWatchCmd(a),
		newScheduleCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and output for the
// invocation. The history store is opened on demand.
func (a *app) setup() error {
	a.out = output.New(output.Config{
		Verbose:   a.opts.Verbose,
		JSON:      a.opts.JSON,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		IsTTY:     a.isTTY,
	})

	path := a.opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	var (
		cfg *config.Config
		err error
	)
	if a.opts.ConfigPath != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return err
	}
	if a.opts.HistoryPath != "" {
		cfg.HistoryPath = a.opts.HistoryPath
	}
	a.cfg = cfg

	logger, logPath, err := logging.ForCommand(cfg.LogDir, cfg.LogLevel, cfg.LogFormat, a.opts.Debug, a.now())
	if err != nil {
		return err
	}
	a.logger = logger
	a.logPath = logPath

	if pruned, err := logging.Prune(cfg.LogDir, cfg.LogKeep, logPath, a.now()); err != nil {
		logger.Warn("failed to prune old logs", zap.String("path", cfg.LogDir), zap.Error(err))
	} else if len(pruned.Removed) > 0 {
		logger.Debug("pruned old logs", zap.Int("files", len(pruned.Removed)), zap.Int64("bytes", pruned.BytesFreed))
	}

	for _, key := range cfg.UnknownKeys() {
		logger.Warn("unknown configuration key", zap.String("key", key), zap.String("path", path))
		a.out.Verbose("Ignoring unknown configuration key %q", key)
	}
	return nil
}

func (a *app) output() *output.Output {
	if a.out == nil {
		a.out = output.New(output.Config{JSON: a.opts.JSON, Writer: a.stdout, ErrWriter: a.stderr})
	}
	return a.out
}

// openStore opens the configured history backend.
func (a *app) openStore() (history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.cfg.HistoryPath
	opts := []history.Option{history.WithLogger(a.logger)}

	switch a.cfg.HistoryBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		store, err := history.NewSQLiteStore(path, opts...)
		if err != nil {
			return nil, err
		}
		a.store = store
	default:
		a.store = history.NewJSONStore(path, opts...)
	}
	a.logger.Debug("history store opened",
		zap.String("backend", a.cfg.HistoryBackend),
		zap.String("path", path))
	return a.store, nil
}

// orchestrator builds an Orchestrator over the configured rules and store.
// The history log and this invocation's log file are never organized.
func (a *app) orchestrator(extra ...organizer.Option) (*orchestrator.Orchestrator, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	engineOpts := []organizer.Option{
		organizer.WithExcludes(a.cfg.HistoryPath, a.logPath),
		organizer.WithIgnorePatterns(a.cfg.IgnorePatterns),
	}
	engineOpts = append(engineOpts, extra...)

	return orchestrator.New(a.cfg.Rules(), store,
		orchestrator.WithLogger(a.logger),
		orchestrator.WithEngineOptions(engineOpts...),
		orchestrator.WithEventHandler(a.out.Event),
	), nil
}

// serveMetrics exposes Prometheus metrics for the lifetime of ctx when an
// address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, a.cfg.MetricsAddr, a.logger); err != nil {
			a.logger.Error("metrics server failed", zap.String("addr", a.cfg.MetricsAddr), zap.Error(err))
		}
	}()
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close history", zap.Error(err))
		}
		a.store = nil
	}
	_ = a.logger.Sync()
}
