package history

import "go.uber.org/zap"

type storeOptions struct {
	clock  Clock
	ids    IDGenerator
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

// WithClock sets the clock used to stamp new runs.
func WithClock(c Clock) Option {
	return func(o *storeOptions) { o.clock = c }
}

// WithIDGenerator sets the generator used for run ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *storeOptions) { o.ids = g }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{
		clock:  RealClock{},
		ids:    UUIDGenerator{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
