package traffic

import (
	"testing"
	"time"
)

func newTestTracker() (*Tracker, *time.Time) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return now }
	return tr, &now
}

// TestRecordDenied_AndCounts verifies that RecordDenied increments DenialCount.
func TestRecordDenied_AndCounts(t *testing.T) {
	tr, _ := newTestTracker()
	tr.RecordDenied()
	tr.RecordDenied()
	if n := tr.DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	if _, total := tr.ErrorRate(time.Minute); total != 0 {
		t.Errorf("ErrorRate() total = %d, denials must be excluded", total)
	}
}

// TestErrorRate_SuccessAndError verifies that ErrorRate correctly calculates
// error rate from recorded success and error events.
func TestErrorRate_SuccessAndError(t *testing.T) {
	tr, _ := newTestTracker()
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordError()
	errs, total := tr.ErrorRate(time.Minute)
	if errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = %d/%d, want 1/3", errs, total)
	}
}

func TestWindowExcludesOldOutcomes(t *testing.T) {
	tr, now := newTestTracker()
	tr.RecordError()
	*now = now.Add(2 * time.Minute)
	tr.RecordSuccess()

	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("ErrorRate() = %d/%d, want 0/1", errs, total)
	}
}

func TestPruneDropsExpired(t *testing.T) {
	tr, now := newTestTracker()
	tr.RecordError()
	*now = now.Add(retention + time.Second)
	tr.RecordSuccess()
	if len(tr.errorTimes) != 0 {
		t.Errorf("errorTimes = %d, want pruned", len(tr.errorTimes))
	}
}

func TestOverloaded(t *testing.T) {
	tr, _ := newTestTracker()
	th := Thresholds{Window: time.Minute, OverloadDenials: 3}
	tr.RecordDenied()
	tr.RecordDenied()
	if tr.Overloaded(th) {
		t.Error("Overloaded() = true below threshold")
	}
	tr.RecordDenied()
	if !tr.Overloaded(th) {
		t.Error("Overloaded() = false at threshold")
	}
	if tr.Overloaded(Thresholds{Window: time.Minute}) {
		t.Error("zero threshold must disable the check")
	}
}

func TestDegraded(t *testing.T) {
	tr, _ := newTestTracker()
	th := Thresholds{Window: time.Minute, DegradedErrorRate: 0.5, DegradedMinSamples: 4}
	tr.RecordError()
	tr.RecordError()
	if tr.Degraded(th) {
		t.Error("Degraded() = true below min samples")
	}
	tr.RecordSuccess()
	tr.RecordSuccess()
	if !tr.Degraded(th) {
		t.Error("Degraded() = false at 50% over 4 samples")
	}
	tr.Reset()
	if tr.Degraded(th) {
		t.Error("Degraded() = true after Reset()")
	}
}
