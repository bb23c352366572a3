package scheduler

import "fmt"

// ResolveError reports a test file whose contents could not be read.
// Missing or malformed directives never produce one.
type ResolveError struct {
	File string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve environment for %s: %v", e.File, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ExecutionError reports a file that could not be run. It aborts the run.
// A batch run sets Files instead of File.
type ExecutionError struct {
	File  string
	Files []string
	Env   string
	Err   error
}

func (e *ExecutionError) Error() string {
	target := e.File
	if target == "" {
		target = fmt.Sprintf("batch of %d file(s)", len(e.Files))
	}
	if e.Env == "" {
		return fmt.Sprintf("execute %s: %v", target, e.Err)
	}
	return fmt.Sprintf("execute %s in %q: %v", target, e.Env, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
