package lifecycle

import "testing"

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	var s State
	if s.IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown(t *testing.T) {
	var s State
	s.SetShuttingDown(true)
	if !s.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
	s.SetShuttingDown(false)
	if s.IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}
