package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/herobot/internal/domain/model"
)

func cmd(id string) model.Command {
	return model.Command{ID: id, Name: model.CommandMatchup, Hero: "axe"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, cmd("c1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "c1" {
		t.Errorf("expected c1, got %v", got.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Cap() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Cap())
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, cmd("c1")) || !q.Enqueue(ctx, cmd("c2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.TryEnqueue(ctx, cmd("c3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.TryEnqueue(ctx, cmd("c1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_GenericPayload(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1), WithBufferSize(1))
	ctx := context.Background()
	if !q.Enqueue(ctx, 42) {
		t.Fatal("expected enqueue to succeed")
	}
	if v := <-q.Dequeue(ctx); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer, consumers = 10, 100, 4

	var consumed sync.Map
	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		ch := q.Dequeue(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range ch {
				consumed.Store(c.ID, true)
			}
		}()
	}

	var pwg sync.WaitGroup
	for i := 0; i < producers; i++ {
		pwg.Add(1)
		go func(id int) {
			defer pwg.Done()
			for j := 0; j < perProducer; j++ {
				c := cmd(fmt.Sprintf("c%d_%d", id, j))
				for !q.Enqueue(ctx, c) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	pwg.Wait()
	_ = q.Close()
	wg.Wait()

	count := 0
	consumed.Range(func(_, _ any) bool { count++; return true })
	if count != producers*perProducer {
		t.Errorf("expected %d consumed, got %d", producers*perProducer, count)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, cmd("c1")) || !q.Enqueue(ctx, cmd("c2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.TryEnqueue(ctx, cmd("c3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Queued items drain before the channel closes.
	var drained []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for done := false; !done; {
		select {
		case c, ok := <-ch:
			if !ok {
				done = true
				break
			}
			drained = append(drained, c.ID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
	if len(drained) != 2 || drained[0] != "c1" || drained[1] != "c2" {
		t.Errorf("expected [c1 c2] drained, got %v", drained)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInMemoryQueue_RequeueOnCancel(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, cmd("c1")) {
		t.Fatal("expected enqueue to succeed")
	}

	// The forwarding goroutine takes c1 and waits for a reader that never comes.
	consumerCtx, cancel := context.WithCancel(ctx)
	ch := q.Dequeue(consumerCtx)
	waitFor(t, func() bool { return q.Len(ctx) == 0 })
	cancel()

	// Nobody reads ch until the item is back, so only the cancel can fire.
	waitFor(t, func() bool { return q.Len(ctx) == 1 })
	if _, ok := <-ch; ok {
		t.Fatal("expected cancelled dequeue channel to close")
	}
	if d := q.Dropped(); d != 0 {
		t.Errorf("expected nothing dropped, got %d", d)
	}
	if got := <-q.Dequeue(ctx); got.ID != "c1" {
		t.Errorf("expected c1, got %v", got.ID)
	}
}

func TestInMemoryQueue_DroppedAfterClose(t *testing.T) {
	q := NewInMemoryQueue[model.Command](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, cmd("c1")) {
		t.Fatal("expected enqueue to succeed")
	}

	consumerCtx, cancel := context.WithCancel(ctx)
	ch := q.Dequeue(consumerCtx)
	waitFor(t, func() bool { return q.Len(ctx) == 0 })
	_ = q.Close()
	cancel()

	waitFor(t, func() bool { return q.Dropped() == 1 })
	if _, ok := <-ch; ok {
		t.Error("expected cancelled dequeue channel to close")
	}
}
