// Package queue defines the contract for enqueuing and consuming commands.
//
// The in-memory implementation is a bounded channel: enqueue never blocks
// and reports backpressure to the caller.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/herobot/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1000
	defaultBufferSize    = 1000
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, item T) bool

	// TryEnqueue is Enqueue with the rejection reason.
	TryEnqueue(ctx context.Context, item T) error

	// Dequeue returns a channel that receives items as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close stops accepting items; queued items can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool

	// Dropped returns the number of dequeued items that were lost because
	// their consumer went away and they could not be put back.
	Dropped() int64
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	s := settings{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(&s)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, s.bufferSize),
		capacity: s.capacity,
	}

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	return q.TryEnqueue(ctx, item) == nil
}

// TryEnqueue is Enqueue with the rejection reason: ErrClosed, ErrFull or the
// context error.
func (q *InMemoryQueue[T]) TryEnqueue(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		q.reject("context_cancelled")
		return err
	}
	if len(q.items) >= q.capacity {
		q.reject("capacity_exceeded")
		return ErrFull
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		q.reject("queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue[T]) reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

func (q *InMemoryQueue[T]) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns a channel that receives items as they become available.
// Each call starts its own forwarding goroutine, so several consumers may
// share the queue. An item taken off the queue when ctx ends before the
// consumer reads it is put back.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- item:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					q.requeue(item)
					return
				}
			}
		}
	}()
	return out
}

// requeue puts back an item its consumer never received. It is dropped
// when the queue is closed or already full again.
func (q *InMemoryQueue[T]) requeue(item T) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.closed {
		select {
		case q.items <- item:
			q.observe()
			return
		default:
		}
	}
	q.dropped.Add(1)
	metrics.RecordErrorByComponent("queue", "dropped")
}

// Dropped returns the number of items lost by requeue.
func (q *InMemoryQueue[T]) Dropped() int64 { return q.dropped.Load() }

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	q.observe()
	return len(q.items)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue[T]) Cap() int { return q.capacity }

// Close stops accepting items and closes the channel once drained.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
