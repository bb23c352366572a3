package scheduler

import (
	"context"

	"envrun/internal/directive"
	"envrun/internal/domain"
	"envrun/internal/environment"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
)

// ResolveName picks the environment for a file's contents: the first
// directive, else the configured default, else the built-in default.
func ResolveName(content, configured string) string {
	if name, ok := directive.Find(content); ok {
		return name
	}
	if configured != "" {
		return configured
	}
	return environment.DefaultName
}

// Resolver assigns an environment to every file of a run.
type Resolver struct {
	fs          afero.Fs
	defaultEnv  string
	concurrency int
}

// NewResolver creates a Resolver reading file contents from fs.
// concurrency bounds parallel reads; zero or less means GOMAXPROCS.
func NewResolver(fs afero.Fs, defaultEnv string, concurrency int) *Resolver {
	return &Resolver{fs: fs, defaultEnv: defaultEnv, concurrency: concurrency}
}

// Resolve reads every file concurrently and returns assignments in input order.
func (r *Resolver) Resolve(ctx context.Context, files []string) ([]domain.Assignment, error) {
	mapper := iter.Mapper[string, domain.Assignment]{MaxGoroutines: r.concurrency}
	return mapper.MapErr(files, func(file *string) (domain.Assignment, error) {
		if err := ctx.Err(); err != nil {
			return domain.Assignment{}, err
		}
		content, err := afero.ReadFile(r.fs, *file)
		if err != nil {
			return domain.Assignment{}, &ResolveError{File: *file, Err: err}
		}
		return domain.Assignment{
			File:        *file,
			Environment: ResolveName(string(content), r.defaultEnv),
		}, nil
	})
}
