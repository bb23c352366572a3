package environment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	ctx := context.Background()

	t.Run("runs body between setup and teardown", func(t *testing.T) {
		rec := &recorder{}
		r := NewRegistry(&fakeProvider{rec: rec})

		err := With(ctx, r, "jsdom", nil, func(_ context.Context, env Environment) error {
			rec.add("body:" + env.Name())
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"setup:jsdom", "body:jsdom", "teardown:jsdom"}, rec.list())
	})

	t.Run("releases once when body fails", func(t *testing.T) {
		rec := &recorder{}
		r := NewRegistry(&fakeProvider{rec: rec})
		boom := errors.New("boom")

		err := With(ctx, r, "node", nil, func(context.Context, Environment) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"setup:node", "teardown:node"}, rec.list())
	})

	t.Run("release failure does not mask body failure", func(t *testing.T) {
		rec := &recorder{}
		releaseErr := errors.New("teardown exploded")
		r := NewRegistry(&fakeProvider{rec: rec, teardownErr: releaseErr})
		boom := errors.New("boom")

		err := With(ctx, r, "node", nil, func(context.Context, Environment) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, releaseErr)
		var re *ReleaseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "node", re.Env)
	})

	t.Run("release failure after successful body", func(t *testing.T) {
		rec := &recorder{}
		releaseErr := errors.New("teardown exploded")
		r := NewRegistry(&fakeProvider{rec: rec, teardownErr: releaseErr})

		err := With(ctx, r, "node", nil, func(context.Context, Environment) error { return nil })

		var re *ReleaseError
		require.ErrorAs(t, err, &re)
		assert.ErrorIs(t, err, releaseErr)
	})

	t.Run("acquire failure skips body and release", func(t *testing.T) {
		rec := &recorder{}
		setupErr := errors.New("no such environment")
		r := NewRegistry(&fakeProvider{rec: rec, setupErr: setupErr})
		called := false

		err := With(ctx, r, "custom", nil, func(context.Context, Environment) error {
			called = true
			return nil
		})

		var ae *AcquireError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "custom", ae.Env)
		assert.ErrorIs(t, err, setupErr)
		assert.False(t, called)
		assert.Equal(t, []string{"setup:custom"}, rec.list())
	})

	t.Run("releases when body panics", func(t *testing.T) {
		rec := &recorder{}
		r := NewRegistry(&fakeProvider{rec: rec})

		assert.Panics(t, func() {
			_ = With(ctx, r, "node", nil, func(context.Context, Environment) error { panic("boom") })
		})
		assert.Equal(t, []string{"setup:node", "teardown:node"}, rec.list())
	})

	t.Run("releases with a live context after cancellation", func(t *testing.T) {
		r := NewRegistry(providerFunc(func(context.Context, string, Options) (Environment, error) {
			return ctxCheckingEnv{}, nil
		}))
		cctx, cancel := context.WithCancel(ctx)

		err := With(cctx, r, "node", nil, func(context.Context, Environment) error {
			cancel()
			return nil
		})
		assert.NoError(t, err)
	})
}

type ctxCheckingEnv struct{}

func (ctxCheckingEnv) Name() string            { return "node" }
func (ctxCheckingEnv) Vars() map[string]string { return nil }
func (ctxCheckingEnv) Teardown(ctx context.Context) error {
	return ctx.Err()
}

func TestRegistry(t *testing.T) {
	rec := &recorder{}
	fallback := &fakeProvider{rec: rec}
	custom := &fakeProvider{rec: rec}
	r := NewRegistry(fallback)
	r.Register("mysql", custom)

	assert.Same(t, custom, r.Lookup("mysql"))
	assert.Same(t, fallback, r.Lookup("anything-else"))
	assert.Equal(t, Builtins, r.Builtins())
	assert.Equal(t, []string{"mysql"}, r.Registered())

	b := r.Builtins()
	b[0] = "changed"
	assert.Equal(t, "node", r.Builtins()[0], "Builtins returns a copy")
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("happy-dom"))
	assert.False(t, IsBuiltin("mysql"))
}
