package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval bounds how long the runner sleeps before re-reading
// the wall clock, so a suspended machine or a clock change is noticed.
const DefaultPollInterval = 30 * time.Second

// TriggerFunc organizes folder.
type TriggerFunc func(ctx context.Context, folder string)

// Clock abstracts time for the runner.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Runner fires a TriggerFunc at each scheduled time, every day.
type Runner struct {
	schedule *Schedule
	trigger  TriggerFunc
	clock    Clock
	poll     time.Duration
	logger   *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock replaces the wall clock.
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithPollInterval sets the longest single sleep.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner for s.
func NewRunner(s *Schedule, trigger TriggerFunc, opts ...RunnerOption) *Runner {
	r := &Runner{
		schedule: s,
		trigger:  trigger,
		clock:    realClock{},
		poll:     DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is cancelled, triggering an organize run whenever a
// scheduled time is reached. A time missed while the machine slept fires
// once on wake. Run returns an error only if the schedule has no valid time.
func (r *Runner) Run(ctx context.Context) error {
	if r.schedule.Next(r.clock.Now()).IsZero() {
		return &ScheduleError{Type: ValidationError, Message: "no times scheduled"}
	}

	var next time.Time
	for {
		now := r.clock.Now()
		if next.IsZero() {
			next = r.schedule.Next(now)
			r.logger.Info("next scheduled run",
				zap.String("path", r.schedule.Folder),
				zap.Time("at", next))
		}

		if !now.Before(next) {
			r.logger.Info("scheduled organize starting",
				zap.String("path", r.schedule.Folder),
				zap.Time("scheduled", next))
			r.trigger(ctx, r.schedule.Folder)
			next = time.Time{}
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		wait := min(next.Sub(now), r.poll)
		select {
		case <-ctx.Done():
			return nil
		case <-r.clock.After(wait):
		}
	}
}
