package environment

import (
	"context"
	"sync"
)

// recorder captures lifecycle events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeProvider struct {
	rec         *recorder
	setupErr    error
	teardownErr error
}

func (p *fakeProvider) Setup(_ context.Context, name string, _ Options) (Environment, error) {
	p.rec.add("setup:" + name)
	if p.setupErr != nil {
		return nil, p.setupErr
	}
	return &fakeEnv{name: name, provider: p}, nil
}

type fakeEnv struct {
	name     string
	provider *fakeProvider
}

func (e *fakeEnv) Name() string { return e.name }

func (e *fakeEnv) Vars() map[string]string {
	return map[string]string{VarEnvironment: e.name}
}

func (e *fakeEnv) Teardown(context.Context) error {
	e.provider.rec.add("teardown:" + e.name)
	return e.provider.teardownErr
}

// providerFunc adapts a function to Provider.
type providerFunc func(ctx context.Context, name string, opts Options) (Environment, error)

func (f providerFunc) Setup(ctx context.Context, name string, opts Options) (Environment, error) {
	return f(ctx, name, opts)
}
