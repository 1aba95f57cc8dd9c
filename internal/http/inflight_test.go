package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// A forecast request still being served holds shutdown until it finishes.
func TestInFlightTracker_HoldsShutdownForActiveRequest(t *testing.T) {
	tracker := &InFlightTracker{}
	started := make(chan struct{})
	release := make(chan struct{})
	slow := MetricsMiddleware(tracker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/forecast?city=Paris", nil))
	}()
	<-started

	if got := tracker.Count(); got != 1 {
		t.Fatalf("Count() during request = %d, want 1", got)
	}

	waited := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		waited <- tracker.WaitForZero(ctx, 2*time.Millisecond)
	}()

	select {
	case err := <-waited:
		t.Fatalf("WaitForZero returned %v while a request was active", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	if err := <-waited; err != nil {
		t.Errorf("WaitForZero() error = %v, want nil", err)
	}
	if got := tracker.Count(); got != 0 {
		t.Errorf("Count() after request = %d, want 0", got)
	}
}

func TestInFlightTracker_WaitForZeroGivesUp(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()
	defer tracker.Decrement()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	err := tracker.WaitForZero(ctx, 2*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForZero() error = %v, want deadline exceeded", err)
	}
}

func TestInFlightTracker_IdleReturnsImmediately(t *testing.T) {
	tracker := &InFlightTracker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tracker.WaitForZero(ctx, time.Hour); err != nil {
		t.Errorf("WaitForZero() on idle tracker = %v, want nil", err)
	}
}
