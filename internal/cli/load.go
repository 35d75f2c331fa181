package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// LoadStats summarises a batch submission.
type LoadStats struct {
	Submitted int
	Accepted  int
	Duplicate int
	Rejected  int // 429 backpressure
	Failed    int
	Duration  time.Duration
}

// Batch builds count commands cycling over heroes. With repeatIDs every
// command is sent twice under the same id to exercise deduplication.
func Batch(name string, heroes []string, count int, repeatIDs bool) []CommandRequest {
	if len(heroes) == 0 || count <= 0 {
		return nil
	}
	out := make([]CommandRequest, 0, count)
	for i := 0; len(out) < count; i++ {
		req := CommandRequest{
			CommandID: uuid.NewString(),
			Name:      name,
			Hero:      heroes[i%len(heroes)],
		}
		out = append(out, req)
		if repeatIDs && len(out) < count {
			out = append(out, req)
		}
	}
	return out
}

// SubmitLoad posts cmds with the given number of concurrent workers.
func SubmitLoad(ctx context.Context, c *Client, cmds []CommandRequest, workers int) LoadStats {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	var submitted, accepted, duplicate, rejected, failed int64
	ch := make(chan CommandRequest, workers*2)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range ch {
				atomic.AddInt64(&submitted, 1)
				ack, err := c.Submit(ctx, req)
				var apiErr *APIError
				switch {
				case err == nil && ack.Duplicate:
					atomic.AddInt64(&duplicate, 1)
				case err == nil:
					atomic.AddInt64(&accepted, 1)
				case errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, req := range cmds {
			select {
			case <-ctx.Done():
				return
			case ch <- req:
			}
		}
	}()
	wg.Wait()

	return LoadStats{
		Submitted: int(submitted),
		Accepted:  int(accepted),
		Duplicate: int(duplicate),
		Rejected:  int(rejected),
		Failed:    int(failed),
		Duration:  time.Since(start),
	}
}
