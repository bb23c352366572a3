// Package environment defines execution environments, the registry that maps
// environment names to providers, and scoped acquisition through With.
package environment

import "context"

// DefaultName is used when neither a directive nor the configuration names an environment.
const DefaultName = "node"

// Builtins are the built-in environments in canonical execution order.
var Builtins = []string{"node", "jsdom", "happy-dom", "edge-runtime"}

// Options are passed unchanged to every environment acquisition of a run.
type Options map[string]any

// Environment is an acquired execution environment. It is owned by whoever
// acquired it and must not be used after Teardown.
type Environment interface {
	// Name returns the environment identifier.
	Name() string
	// Vars returns variables exported to test commands running inside the environment.
	Vars() map[string]string
	// Teardown releases everything Setup acquired.
	Teardown(ctx context.Context) error
}

// Provider constructs environments.
type Provider interface {
	Setup(ctx context.Context, name string, opts Options) (Environment, error)
}

// IsBuiltin reports whether name is one of the built-in environments.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if b == name {
			return true
		}
	}
	return false
}
