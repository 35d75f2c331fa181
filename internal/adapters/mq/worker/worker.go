// Package worker runs queued chat commands and delivers their replies.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/herobot/internal/domain/model"
	"github.com/okian/herobot/pkg/logger"
	"github.com/okian/herobot/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultCommandTimeout   = 30 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Command is what workers read off the queue.
type Command = model.Command

// Handler turns a command into reply text.
type Handler interface {
	Handle(ctx context.Context, cmd Command) string
}

// Replier delivers reply text for a command.
type Replier interface {
	Reply(ctx context.Context, cmd Command, text string) error
}

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Command
}

// InMemoryWorker processes commands from a Queue until stopped.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	replier Replier
	cfg     settings

	processed atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

func newSettings(opts []Option) settings {
	s := settings{
		name:           "worker",
		logger:         logger.Nop(),
		commandTimeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, replier Replier, opts ...Option) *InMemoryWorker {
	cfg := newSettings(opts)
	cfg.logger = cfg.logger.Named(cfg.name)
	return &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		replier:  replier,
		cfg:      cfg,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Cancelling releases the queue's forwarding goroutine on exit.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			if err := w.process(ctx, cmd); err != nil {
				w.cfg.logger.Error(ctx, "error processing command", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.cfg.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Processed returns the number of commands this worker handled.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// process handles a single command and sends its reply.
func (w *InMemoryWorker) process(ctx context.Context, cmd Command) error { //nolint:gocritic // hugeParam: Command is passed by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		w.processed.Add(1)
	}()

	ctx, cancel := context.WithTimeout(ctx, w.cfg.commandTimeout)
	defer cancel()

	text := w.handler.Handle(ctx, cmd)

	if err := w.replier.Reply(ctx, cmd, text); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "reply_error")
		metrics.RecordErrorByType("reply_error", "medium")
		w.cfg.logger.Warn(ctx, "reply failed",
			logger.String("command_id", cmd.ID),
			logger.String("command", cmd.Name),
			logger.Error(err),
		)
		return fmt.Errorf("reply for command %s: %w", cmd.ID, err)
	}

	w.cfg.logger.Debug(ctx, "command processed",
		logger.String("command_id", cmd.ID),
		logger.String("command", cmd.Name),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker; names
// are assigned per worker.
func NewPool(workerCount int, queue Queue, handler Handler, replier Replier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	cfg := newSettings(opts)

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  cfg.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, handler, replier, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of commands handled by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Stop signals every worker and waits up to the worker shutdown timeout
// for all of them to exit. Queued commands are left in the queue. It
// returns the number of workers still running.
func (p *Pool) Stop() int {
	for _, w := range p.workers {
		w.stop()
	}
	deadline := time.NewTimer(workerShutdownTimeout)
	defer deadline.Stop()

	running := 0
	for _, w := range p.workers {
		if running > 0 {
			// Past the deadline; only count the stragglers.
			select {
			case <-w.done:
			default:
				running++
			}
			continue
		}
		select {
		case <-w.done:
		case <-deadline.C:
			running++
		}
	}
	return running
}

// Shutdown closes the queue and lets workers drain it, then forces the
// remaining workers to stop when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		running := p.Stop()
		p.logger.Warn(ctx, "worker pool force stopped", logger.Int("running", running))
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
