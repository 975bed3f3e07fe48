// Package organizer sorts the top-level files of a directory into category
// subfolders and records each run so it can be undone.
package organizer

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"tidyup/internal/category"
	"tidyup/internal/fileops"
	"tidyup/internal/history"
)

// Engine organizes directories using a category rule set and records runs
// in a history store. An Engine holds no per-run state and may be reused.
type Engine struct {
	rules    *category.Rules
	store    history.Store
	logger   *zap.Logger
	excludes map[string]bool
	ignore   []string
	dryRun   bool
	onRecord func(history.RunID, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for per-file progress.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExcludes names files that must never be moved, such as the history
// log or the active log file when they live in the organized directory.
func WithExcludes(paths ...string) Option {
	return func(e *Engine) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			e.excludes[filepath.Clean(p)] = true
		}
	}
}

// WithIgnorePatterns skips files whose base name matches any glob.
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, patterns...)
	}
}

// WithDryRun reports the moves that would happen without touching the
// filesystem or the history store.
func WithDryRun() Option {
	return func(e *Engine) { e.dryRun = true }
}

// WithRecordHook calls fn after every attempt to record a run, including
// the one made when the caller stops the stream early.
func WithRecordHook(fn func(history.RunID, error)) Option {
	return func(e *Engine) { e.onRecord = fn }
}

// NewEngine creates an Engine. store may be nil only in dry-run mode.
func NewEngine(rules *category.Rules, store history.Store, opts ...Option) *Engine {
	if rules == nil {
		rules = category.DefaultRules()
	}
	e := &Engine{
		rules:    rules,
		store:    store,
		logger:   zap.NewNop(),
		excludes: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Organize returns a single-use stream of events for organizing dir.
// Only regular files directly inside dir are considered; subdirectories
// are never entered. Work happens as the caller pulls events, so a caller
// that stops early leaves the moves made so far in place; those moves are
// still recorded as a run so they can be undone.
func (e *Engine) Organize(dir string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if msg := validateDirectory(dir); msg != "" {
			e.logger.Error("invalid organize target", zap.String("path", dir), zap.String("reason", msg))
			yield(Event{Kind: EventInvalid, Message: msg})
			return
		}

		files, err := e.listFiles(dir)
		if err != nil {
			e.logger.Error("failed to list directory", zap.String("path", dir), zap.Error(err))
			yield(Event{Kind: EventInvalid, Message: fmt.Sprintf("cannot read directory: %s", dir)})
			return
		}
		if len(files) == 0 {
			yield(Event{Kind: EventEmpty, Message: fmt.Sprintf("no files to organize in %s", dir)})
			return
		}

		e.logger.Info("starting organization", zap.String("path", dir), zap.Int("files", len(files)), zap.Bool("dry_run", e.dryRun))

		var (
			moves   []history.MoveRecord
			skipped int
			failed  int
		)
		// Destinations claimed by this run. Dry runs create nothing on disk,
		// so collision resolution must also consult this set.
		claimed := make(map[string]bool)
		for _, name := range files {
			ev := e.organizeFile(dir, name, claimed)
			switch ev.Kind {
			case EventMoved:
				claimed[ev.Destination] = true
				moves = append(moves, history.MoveRecord{From: ev.Source, To: ev.Destination})
			case EventSkipped:
				skipped++
			case EventError:
				failed++
			}
			if !yield(ev) {
				e.logger.Info("organize stopped by caller", zap.String("path", dir), zap.Int("moved", len(moves)))
				e.record(moves)
				return
			}
		}

		if len(moves) == 0 {
			return
		}

		runID, err := e.record(moves)
		if err != nil {
			failed++
			if !yield(Event{Kind: EventError, Message: fmt.Sprintf("failed to record history: %v", err)}) {
				return
			}
		}

		e.logger.Info("organization complete",
			zap.String("path", dir),
			zap.Int("moved", len(moves)),
			zap.Int("skipped", skipped),
			zap.Int("errors", failed),
			zap.String("run_id", string(runID)),
		)
		yield(Event{Kind: EventDone, Moved: len(moves), Skipped: skipped, Errors: failed, RunID: runID})
	}
}

func validateDirectory(dir string) string {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("path does not exist: %s", dir)
		}
		return fmt.Sprintf("cannot access path: %s (%v)", dir, err)
	}
	if !info.IsDir() {
		return fmt.Sprintf("path is not a directory: %s", dir)
	}
	return ""
}

// listFiles returns the names of eligible top-level regular files and
// symlinks to regular files, sorted.
func (e *Engine) listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if !entry.Type().IsRegular() {
			// A symlink to a regular file is moved as a link.
			if entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			info, err := os.Stat(full)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		if abs, err := filepath.Abs(full); err == nil {
			full = abs
		}
		if e.excludes[full] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// organizeFile moves one file and reports what happened. It never panics
// or aborts the run; every failure becomes an error event.
func (e *Engine) organizeFile(dir, name string, claimed map[string]bool) Event {
	if e.ignored(name) {
		e.logger.Debug("skipped ignored file", zap.String("file", name))
		return Event{Kind: EventSkipped, File: name, Reason: ReasonIgnored}
	}

	ext := category.Extension(name)
	if ext == "" {
		e.logger.Warn("skipped file without extension", zap.String("file", name))
		return Event{Kind: EventSkipped, File: name, Reason: ReasonNoExtension}
	}

	cat := e.rules.Classify(ext)
	catDir := filepath.Join(dir, cat)
	src := filepath.Join(dir, name)

	if !e.dryRun {
		if err := os.MkdirAll(catDir, 0755); err != nil {
			e.logger.Error("failed to create category folder", zap.String("file", name), zap.String("category", cat), zap.Error(err))
			return Event{Kind: EventError, File: name, Message: err.Error()}
		}
	}

	taken := func(path string) bool { return claimed[path] || fileops.Exists(path) }
	destName := resolveCollision(catDir, name, taken)
	dest := filepath.Join(catDir, destName)
	if destName != name {
		e.logger.Info("renamed duplicate", zap.String("file", name), zap.String("renamed", destName))
	}

	if !e.dryRun {
		err := fileops.Move(src, dest)
		var moveErr *fileops.MoveError
		if errors.As(err, &moveErr) && moveErr.Type == fileops.DestinationExists {
			// Something claimed the name after it was resolved; pick again once.
			destName = resolveCollision(catDir, name, taken)
			dest = filepath.Join(catDir, destName)
			err = fileops.Move(src, dest)
		}
		if err != nil {
			e.logger.Error("failed to move file", zap.String("file", name), zap.String("category", cat), zap.Error(err))
			return Event{Kind: EventError, File: name, Message: err.Error()}
		}
	}

	e.logger.Info("moved file", zap.String("file", name), zap.String("category", cat), zap.String("destination", dest))
	return Event{Kind: EventMoved, File: name, Category: cat, Source: src, Destination: dest}
}

func (e *Engine) ignored(name string) bool {
	for _, pattern := range e.ignore {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// record persists moves as a run. Dry runs and empty move lists record nothing.
func (e *Engine) record(moves []history.MoveRecord) (history.RunID, error) {
	if e.dryRun || len(moves) == 0 || e.store == nil {
		return "", nil
	}
	runID, err := e.store.AppendRun(moves)
	if err != nil {
		e.logger.Error("failed to record run", zap.Int("moves", len(moves)), zap.Error(err))
		runID = ""
	}
	if e.onRecord != nil {
		e.onRecord(runID, err)
	}
	return runID, err
}
