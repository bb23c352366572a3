package environment

import (
	"context"
	"errors"
)

// With acquires the named environment, runs body inside it and always
// releases it afterwards, including when body fails or panics. A release
// failure is joined with the body's error rather than replacing it.
func With(ctx context.Context, r *Registry, name string, opts Options, body func(ctx context.Context, env Environment) error) (err error) {
	env, err := r.Lookup(name).Setup(ctx, name, opts)
	if err != nil {
		return &AcquireError{Env: name, Err: err}
	}

	defer func() {
		// Teardown runs even if ctx was cancelled mid-group
		if terr := env.Teardown(context.WithoutCancel(ctx)); terr != nil {
			err = errors.Join(err, &ReleaseError{Env: name, Err: terr})
		}
	}()

	return body(ctx, env)
}
