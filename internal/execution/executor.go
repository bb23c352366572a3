package execution

import (
	"context"

	"envrun/internal/domain"
	"envrun/internal/environment"
)

// Executor runs test files inside an environment. A returned error means
// the files could not be run at all; failing tests are reported through
// unsuccessful results instead. env is nil when the run has no environments.
type Executor interface {
	Execute(ctx context.Context, files []string, env environment.Environment) ([]domain.TestResult, error)
}
