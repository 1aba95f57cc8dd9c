package lifecycle

import "sync/atomic"

// State tracks whether the process is draining.
type State struct {
	shuttingDown atomic.Bool
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT is received;
// the health handler returns 503 with status shutting-down while true.
func (s *State) SetShuttingDown(v bool) {
	s.shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func (s *State) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}
