// Package watcher organizes a directory automatically as new files land in it.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// TriggerFunc organizes dir. It is never called concurrently with itself.
type TriggerFunc func(ctx context.Context, dir string)

// Options configures a Watcher.
type Options struct {
	Debounce       time.Duration // quiet period after the last event before a run
	Stable         time.Duration // how long file sizes must hold still before a run
	IgnorePatterns []string      // extra globs on top of DefaultIgnorePatterns
	Exclude        []string      // exact paths whose changes never trigger a run
	Logger         *zap.Logger
}

// Summary contains stats from one watch session.
type Summary struct {
	Events   int // relevant filesystem events seen
	Ignored  int // events on ignored names
	Runs     int // organize runs triggered
	Duration time.Duration
}

// Watcher watches the top level of one directory.
type Watcher struct {
	dir     string
	trigger TriggerFunc
	opts    Options
	filter  *Filter
	logger  *zap.Logger

	mu    sync.Mutex
	stats Summary
}

// New creates a Watcher for dir, which must be an existing directory.
func New(dir string, trigger TriggerFunc, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	filter := NewFilter(abs, opts.IgnorePatterns)
	filter.Exclude(opts.Exclude...)

	return &Watcher{
		dir:     abs,
		trigger: trigger,
		opts:    opts,
		filter:  filter,
		logger:  logger,
	}, nil
}

// Dir returns the absolute path being watched.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled and returns the session summary.
// An organize run in progress when ctx ends receives the cancelled ctx and
// Run waits for it to return.
func (w *Watcher) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory",
		zap.String("path", w.dir),
		zap.Duration("debounce", w.opts.Debounce),
		zap.Duration("stable", w.opts.Stable))

	// One slot: a burst that settles while a run is in progress queues
	// exactly one follow-up run.
	runs := make(chan struct{}, 1)
	debouncer := NewDebouncer(w.opts.Debounce, func(string) {
		select {
		case runs <- struct{}{}:
		default:
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx, runs)
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-fsw.Events:
			if !ok {
				break loop
			}
			if w.handle(ev) {
				debouncer.Touch(w.dir)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				break loop
			}
			w.logger.Warn("watch error", zap.String("path", w.dir), zap.Error(err))
		}
	}

	debouncer.Stop()
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	summary := w.stats
	summary.Duration = time.Since(start)
	w.logger.Info("stopped watching",
		zap.String("path", w.dir),
		zap.Int("runs", summary.Runs),
		zap.Duration("duration", summary.Duration))
	return &summary, nil
}

// handle reports whether ev should schedule an organize run.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !w.filter.Relevant(ev.Name) {
		if filepath.Dir(filepath.Clean(ev.Name)) == w.dir && w.filter.Ignored(ev.Name) {
			w.count(func(s *Summary) { s.Ignored++ })
			w.logger.Debug("ignoring temporary file", zap.String("file", filepath.Base(ev.Name)))
		}
		return false
	}
	info, err := os.Lstat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		// Category folders created by a run land here too.
		return false
	}
	w.count(func(s *Summary) { s.Events++ })
	w.logger.Debug("file activity", zap.String("file", filepath.Base(ev.Name)), zap.String("op", ev.Op.String()))
	return true
}

func (w *Watcher) work(ctx context.Context, runs <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-runs:
		}
		if err := WaitSettled(ctx, w.dir, w.filter, w.opts.Stable, 0); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("waiting for files to settle", zap.String("path", w.dir), zap.Error(err))
			continue
		}
		w.logger.Info("organizing after file activity", zap.String("path", w.dir))
		w.trigger(ctx, w.dir)
		w.count(func(s *Summary) { s.Runs++ })
	}
}

func (w *Watcher) count(fn func(*Summary)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}
