// Package worker applies queued evaluations to player profiles.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/coach/internal/domain/model"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

const (
	defaultApplyTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.EvaluationEvent

// Applier loads, tracks and stores one evaluation for its player.
type Applier interface {
	Apply(ctx context.Context, ev Event) error
}

// Queue is the receive side workers need.
type Queue interface {
	Dequeue() <-chan Event
}

// FailureHandler is told about every event that could not be applied.
type FailureHandler func(ctx context.Context, ev Event, err error)

// Worker processes events until the queue closes or it is shut down.
type Worker interface {
	Run(ctx context.Context)
	// Shutdown stops the worker after the event in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	applier   Applier
	name      string
	timeout   time.Duration
	onFailure FailureHandler
	processed *atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		applier:   applier,
		name:      "worker",
		timeout:   defaultApplyTimeout,
		processed: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes events. It returns when ctx ends, Shutdown is called or the
// queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, ev); err != nil && w.onFailure != nil {
				w.onFailure(ctx, ev, err)
			}
		}
	}
}

// Shutdown signals the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, ev Event) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	metrics.RecordQueueDequeue()
	metrics.RecordQueueProcessingLatency(float64(ev.Age(start).Microseconds()) / 1000)
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	actx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.applier.Apply(actx, ev); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "apply failed",
			logger.String("event_id", ev.EventID),
			logger.PlayerID(ev.PlayerID),
			logger.Error(err),
		)
		return fmt.Errorf("apply event %s: %w", ev.EventID, err)
	}
	w.processed.Add(1)
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers sharing queue and applier. A count
// below one means twice the CPU count. opts are applied to every worker.
func NewPool(workerCount int, queue Queue, applier Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * 2
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, withCounter(&p.processed))
		p.workers[i] = NewInMemoryWorker(queue, applier, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed counts events applied successfully since start.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Stop halts every worker after its current event without draining the queue.
func (p *Pool) Stop(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			_ = w.Shutdown(ctx)
		}(w)
	}
	wg.Wait()
}

// Shutdown closes the queue and waits for workers to drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-sctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			p.Stop(ctx)
			return fmt.Errorf("drain timed out: %w", sctx.Err())
		}
	}
	return nil
}
