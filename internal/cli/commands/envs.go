package commands

import (
	"envrun/internal/config"
	"envrun/internal/discovery"
	"envrun/internal/environment"
	"envrun/internal/ui"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// EnvsCommand handles the envs command
type EnvsCommand struct {
	config *config.Config
	fs     afero.Fs
}

// NewEnvsCommand creates a new EnvsCommand
func NewEnvsCommand(cfg *config.Config) *EnvsCommand {
	return &EnvsCommand{
		config: cfg,
		fs:     afero.NewOsFs(),
	}
}

// Execute runs the command
func (ec *EnvsCommand) Execute(cmd *cobra.Command, args []string) error {
	registry := newRegistry(ec.config, ec.fs)

	defaultEnv := ec.config.Environment
	if defaultEnv == "" {
		defaultEnv = environment.DefaultName
	}

	var custom []string
	listed := map[string]bool{}
	for _, name := range registry.Registered() {
		if !environment.IsBuiltin(name) {
			custom = append(custom, name)
			listed[name] = true
		}
	}
	if !environment.IsBuiltin(defaultEnv) && !listed[defaultEnv] {
		custom = append(custom, defaultEnv)
	}

	formatter := ui.NewFormatter(ec.config, discovery.NewParser(ec.fs))
	formatter.SetOutput(cmd.OutOrStdout())
	formatter.PrintEnvironments(registry.Builtins(), custom, defaultEnv)
	return nil
}
