// Package worker holds the execution context shared by every file of a run:
// the file currently executing, the mock registry and the module cache.
//
// A State is created once per run, reset in place between files and closed
// when the run ends. It is never recreated per file.
package worker

import "sync"

// State is the run-scoped execution context.
type State struct {
	mu          sync.RWMutex
	currentFile string
	hasFile     bool

	Mocks   *MockRegistry
	Modules *ModuleCache
}

// New creates the execution context for a run. keep lists module id prefixes
// that survive every module cache reset.
func New(keep []string) *State {
	return &State{
		Mocks:   NewMockRegistry(),
		Modules: NewModuleCache(keep),
	}
}

// CurrentFile returns the file being executed, if any.
func (s *State) CurrentFile() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentFile, s.hasFile
}

// SetCurrentFile marks file as executing.
func (s *State) SetCurrentFile(file string) {
	s.mu.Lock()
	s.currentFile = file
	s.hasFile = true
	s.mu.Unlock()
}

// ClearCurrentFile marks no file as executing.
func (s *State) ClearCurrentFile() {
	s.mu.Lock()
	s.currentFile = ""
	s.hasFile = false
	s.mu.Unlock()
}

// Close disposes the context at the end of a run.
func (s *State) Close() {
	s.ClearCurrentFile()
	s.Mocks.Clear()
	s.Modules.Reset(true)
}
