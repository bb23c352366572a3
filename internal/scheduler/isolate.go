package scheduler

import "envrun/internal/worker"

// Isolator resets shared execution state between files.
type Isolator struct {
	state   *worker.State
	enabled bool
}

// NewIsolator creates an Isolator. When disabled it never resets anything
// and state set by one file stays visible to the next.
func NewIsolator(state *worker.State, enabled bool) *Isolator {
	return &Isolator{state: state, enabled: enabled}
}

// BeforeFile forgets every mock and discards cached modules. It must run
// before the file it guards starts.
func (i *Isolator) BeforeFile() (reset bool) {
	if !i.enabled {
		return false
	}
	i.state.Mocks.Clear()
	i.state.Modules.Reset(true)
	return true
}
