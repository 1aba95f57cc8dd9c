package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/trip-planner/internal/observability"
)

// inFlightRequest tracks a single resolution that multiple callers may wait for.
type inFlightRequest[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// requestCoalescer shares one resolution between concurrent callers asking for
// the same key.
type requestCoalescer[T any] struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightRequest[T]
	timeout  time.Duration
}

func newRequestCoalescer[T any](timeout time.Duration) *requestCoalescer[T] {
	return &requestCoalescer[T]{
		inFlight: make(map[string]*inFlightRequest[T]),
		timeout:  timeout,
	}
}

// GetOrDo joins the in-flight request for key or starts one. fn runs detached
// from ctx cancellation so a caller that gives up does not fail the others;
// each caller still stops waiting when its own ctx or the timeout ends.
func (rc *requestCoalescer[T]) GetOrDo(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	rc.mu.Lock()
	req, exists := rc.inFlight[key]
	if exists {
		observability.RequestCoalescingHitsTotal.Inc()
	} else {
		req = &inFlightRequest[T]{done: make(chan struct{})}
		rc.inFlight[key] = req
	}
	rc.mu.Unlock()

	if !exists {
		detached := context.WithoutCancel(ctx)
		go func() {
			defer rc.cleanup(key)
			defer close(req.done)
			req.result, req.err = fn(detached)
		}()
	}

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-req.done:
		return req.result, req.err
	case <-waitCtx.Done():
		var zero T
		return zero, waitCtx.Err()
	}
}

// cleanup removes the in-flight request for key.
func (rc *requestCoalescer[T]) cleanup(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.inFlight, key)
}
