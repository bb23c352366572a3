package commands

import (
	"envrun/internal/config"
	"envrun/internal/storage"
	"envrun/internal/ui"

	"github.com/spf13/cobra"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	config *config.Config
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(cfg *config.Config) *FailuresCommand {
	return &FailuresCommand{config: cfg}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	st := storage.NewJSONStorage(fc.config)
	results, err := st.Load()
	if err != nil {
		return err
	}

	return ui.NewErrorViewer(st, nil).View(results)
}
