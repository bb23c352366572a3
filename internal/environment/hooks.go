package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Hooks are commands run when a custom environment is set up and torn down.
type Hooks struct {
	Setup    []string
	Teardown []string
}

// CommandFunc runs args in dir with the given environment variables.
type CommandFunc func(ctx context.Context, dir string, env []string, args []string) error

// HookProvider wraps a base provider with setup and teardown commands. The
// commands see the same variables test commands will see.
type HookProvider struct {
	base  Provider
	hooks Hooks
	dir   string
	run   CommandFunc
}

// NewHookProvider creates a provider running hooks in dir around base.
func NewHookProvider(base Provider, hooks Hooks, dir string) *HookProvider {
	return &HookProvider{base: base, hooks: hooks, dir: dir, run: runCommand}
}

// WithRunner replaces the command runner. Used by tests.
func (p *HookProvider) WithRunner(run CommandFunc) *HookProvider {
	p.run = run
	return p
}

// Setup acquires the base environment and runs the setup hook inside it.
// If the hook fails the base environment is released before returning.
func (p *HookProvider) Setup(ctx context.Context, name string, opts Options) (Environment, error) {
	base, err := p.base.Setup(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	env := &hookEnv{Environment: base, provider: p}
	if len(p.hooks.Setup) > 0 {
		if err := p.run(ctx, p.dir, Environ(base), p.hooks.Setup); err != nil {
			err = fmt.Errorf("setup hook: %w", err)
			if terr := base.Teardown(context.WithoutCancel(ctx)); terr != nil {
				err = errors.Join(err, terr)
			}
			return nil, err
		}
	}
	return env, nil
}

type hookEnv struct {
	Environment
	provider *HookProvider
}

// Teardown runs the teardown hook, then releases the base environment even if the hook failed.
func (e *hookEnv) Teardown(ctx context.Context) error {
	var hookErr error
	if len(e.provider.hooks.Teardown) > 0 {
		if err := e.provider.run(ctx, e.provider.dir, Environ(e.Environment), e.provider.hooks.Teardown); err != nil {
			hookErr = fmt.Errorf("teardown hook: %w", err)
		}
	}
	return errors.Join(hookErr, e.Environment.Teardown(ctx))
}

// Environ returns the process environment extended with env's variables.
func Environ(env Environment) []string {
	out := os.Environ()
	if env == nil {
		return out
	}
	for k, v := range env.Vars() {
		out = append(out, k+"="+v)
	}
	return out
}

func runCommand(ctx context.Context, dir string, env []string, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	output, err := cmd.CombinedOutput()
	if err != nil {
		out := strings.TrimSpace(string(output))
		if out == "" {
			return fmt.Errorf("%s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("%s: %w: %s", strings.Join(args, " "), err, out)
	}
	return nil
}
