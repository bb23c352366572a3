package environment

import "fmt"

// AcquireError reports that an environment could not be set up.
// Nothing was acquired, so nothing is released.
type AcquireError struct {
	Env string
	Err error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire environment %q: %v", e.Env, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

// ReleaseError reports that an environment failed to tear down.
type ReleaseError struct {
	Env string
	Err error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release environment %q: %v", e.Env, e.Err)
}

func (e *ReleaseError) Unwrap() error { return e.Err }
