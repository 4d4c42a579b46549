package worker

import (
	"sync/atomic"
	"time"

	"github.com/okian/coach/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithApplyTimeout bounds a single Apply call.
func WithApplyTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithFailureHandler registers a callback for events that failed to apply.
func WithFailureHandler(fn FailureHandler) Option {
	return func(w *InMemoryWorker) { w.onFailure = fn }
}

func withCounter(c *atomic.Int64) Option {
	return func(w *InMemoryWorker) { w.processed = c }
}
