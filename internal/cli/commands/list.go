package commands

import (
	"envrun/internal/config"
	"envrun/internal/discovery"
	"envrun/internal/storage"
	"envrun/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ListCommand handles the list command
type ListCommand struct {
	config *config.Config
	fs     afero.Fs
}

// NewListCommand creates a new ListCommand
func NewListCommand(cfg *config.Config) *ListCommand {
	return &ListCommand{
		config: cfg,
		fs:     afero.NewOsFs(),
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	tests, err := discover(lc.config, lc.fs)
	if err != nil {
		return err
	}

	if len(tests) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	groups, err := plan(commandContext(cmd), lc.config, lc.fs, newRegistry(lc.config, lc.fs), tests)
	if err != nil {
		return err
	}

	formatter := ui.NewFormatter(lc.config, discovery.NewParser(lc.fs))
	formatter.SetOutput(cmd.OutOrStdout())
	formatter.PrintTestList(groups, lc.config.Flags.TestCases, failedPaths(lc.config, storage.NewJSONStorage(lc.config)))
	return nil
}
