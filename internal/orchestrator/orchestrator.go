// Package orchestrator coordinates organize, undo and scan operations for
// tidyup front ends, recording logs and metrics along the way.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tidyup/internal/category"
	"tidyup/internal/history"
	"tidyup/internal/metrics"
	"tidyup/internal/organizer"
	"tidyup/internal/scanner"
)

// Orchestrator runs operations against one rule set and history store.
type Orchestrator struct {
	rules      *category.Rules
	store      history.Store
	logger     *zap.Logger
	engineOpts []organizer.Option
	onEvent    func(organizer.Event)
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger passed to the engines.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEngineOptions adds options applied to every organize engine.
func WithEngineOptions(opts ...organizer.Option) Option {
	return func(o *Orchestrator) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithEventHandler registers a callback invoked for every organize event
// as it happens.
func WithEventHandler(fn func(organizer.Event)) Option {
	return func(o *Orchestrator) { o.onEvent = fn }
}

// New creates an Orchestrator.
func New(rules *category.Rules, store history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rules:  rules,
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) engine(extra ...organizer.Option) *organizer.Engine {
	opts := append([]organizer.Option{organizer.WithLogger(o.logger)}, o.engineOpts...)
	opts = append(opts, extra...)
	return organizer.NewEngine(o.rules, o.store, opts...)
}

// Run organizes dir and returns a summary. Cancelling ctx stops the run
// after the file in progress; moves made so far stay recorded.
func (o *Orchestrator) Run(ctx context.Context, dir string) *Summary {
	start := o.now()
	summary := newSummary(dir)

	for ev := range o.engine(organizer.WithRecordHook(summary.recorded)).Organize(dir) {
		summary.add(ev)
		recordMetrics(ev)
		if o.onEvent != nil {
			o.onEvent(ev)
		}
		if ev.Kind != organizer.EventDone && ctx.Err() != nil {
			o.logger.Warn("organize cancelled", zap.String("path", dir))
			summary.Cancelled = true
			break
		}
	}

	summary.Duration = o.now().Sub(start)
	return summary
}

func recordMetrics(ev organizer.Event) {
	switch ev.Kind {
	case organizer.EventMoved:
		metrics.RecordMove(ev.Category)
	case organizer.EventSkipped:
		metrics.RecordSkip()
	case organizer.EventError:
		if ev.File != "" {
			metrics.RecordMoveError()
		}
	case organizer.EventDone:
		if ev.RunID != "" {
			metrics.RecordRun()
		}
	}
}

// Undo reverses the run with the given id, or the most recent undoable run
// when id is empty.
func (o *Orchestrator) Undo(id history.RunID) (*history.UndoResult, error) {
	undoer := history.NewUndoer(o.store, o.logger)

	var (
		result *history.UndoResult
		err    error
	)
	if id == "" {
		result, err = undoer.UndoLast()
	} else {
		result, err = undoer.UndoRun(id)
	}

	switch {
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrRunNotFound):
		metrics.RecordUndo(metrics.UndoNothing)
	case err != nil:
		metrics.RecordUndo(metrics.UndoFailed)
	case result.Partial():
		metrics.RecordUndo(metrics.UndoPartial)
	default:
		metrics.RecordUndo(metrics.UndoComplete)
	}
	return result, err
}

// History lists recorded runs, oldest first.
func (o *Orchestrator) History() ([]history.RunRecord, error) {
	return o.store.ListRuns()
}

// Scan produces a report for root.
func (o *Orchestrator) Scan(ctx context.Context, root string, progress scanner.ProgressFunc) (*scanner.Report, error) {
	report, err := scanner.ScanWithOptions(ctx, root, scanner.Options{Progress: progress, Logger: o.logger})
	if report != nil {
		metrics.RecordScan(report.TotalItems, report.ScanTime)
	}
	return report, err
}
