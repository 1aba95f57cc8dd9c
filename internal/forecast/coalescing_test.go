package forecast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestCoalescer_SharesOneCall(t *testing.T) {
	rc := newRequestCoalescer[int](time.Second)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := rc.GetOrDo(context.Background(), "k", func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
			if err != nil {
				t.Errorf("GetOrDo() error = %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn calls = %d, want 1", got)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, want 42", i, v)
		}
	}
}

func TestRequestCoalescer_SharesError(t *testing.T) {
	rc := newRequestCoalescer[int](time.Second)
	boom := errors.New("boom")
	_, err := rc.GetOrDo(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("GetOrDo() error = %v, want boom", err)
	}
}

func TestRequestCoalescer_CallerCancelDoesNotCancelWork(t *testing.T) {
	rc := newRequestCoalescer[int](time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := make(chan error, 1)

	go func() {
		_, err := rc.GetOrDo(ctx, "k", func(workCtx context.Context) (int, error) {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished <- workCtx.Err()
			return 1, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("GetOrDo() error = %v, want context.Canceled", err)
		}
	}()

	<-started
	cancel()
	select {
	case err := <-finished:
		if err != nil {
			t.Errorf("work context err = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("work did not finish")
	}
}

func TestRequestCoalescer_Timeout(t *testing.T) {
	rc := newRequestCoalescer[int](20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	_, err := rc.GetOrDo(context.Background(), "k", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetOrDo() error = %v, want deadline exceeded", err)
	}
}
