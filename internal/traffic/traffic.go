// Package traffic keeps sliding windows of forecast request outcomes for the
// gateway's health checks.
package traffic

import (
	"sync"
	"time"
)

const retention = 5 * time.Minute

// Tracker maintains sliding windows of outcome timestamps. It is the single
// source for both the overloaded check (denials) and the degraded check
// (forecast error rate).
type Tracker struct {
	mu           sync.Mutex
	now          func() time.Time
	successTimes []time.Time
	errorTimes   []time.Time
	deniedTimes  []time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// RecordSuccess records a forecast request that resolved, including the
// client-side outcomes such as location_not_found.
func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

// RecordError records a forecast request that failed on the provider side.
func (t *Tracker) RecordError() {
	t.recordOutcome(&t.errorTimes)
}

// RecordDenied records a rate-limit denial (429).
func (t *Tracker) RecordDenied() {
	t.recordOutcome(&t.deniedTimes)
}

func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.deniedTimes, t.now().Add(-window))
}

// ErrorRate returns (errorCount, totalCount) within the window. Denials are
// excluded from the total.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	return errCount, errCount + countInWindow(t.successTimes, cutoff)
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
	t.deniedTimes = nil
}

// Thresholds configure Overloaded and Degraded.
type Thresholds struct {
	Window             time.Duration
	OverloadDenials    int
	DegradedErrorRate  float64
	DegradedMinSamples int
}

// Overloaded reports whether denials in the window reached the threshold.
// A zero threshold disables the check.
func (t *Tracker) Overloaded(th Thresholds) bool {
	if th.OverloadDenials <= 0 {
		return false
	}
	return t.DenialCount(th.Window) >= th.OverloadDenials
}

// Degraded reports whether the forecast error rate in the window reached the
// threshold, once at least DegradedMinSamples outcomes were seen.
func (t *Tracker) Degraded(th Thresholds) bool {
	if th.DegradedErrorRate <= 0 {
		return false
	}
	errs, total := t.ErrorRate(th.Window)
	if total == 0 || total < th.DegradedMinSamples {
		return false
	}
	return float64(errs)/float64(total) >= th.DegradedErrorRate
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention period. Must be
// called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
	prune(&t.deniedTimes)
}
