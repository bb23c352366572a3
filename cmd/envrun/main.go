package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"envrun/internal/cli"
	"envrun/internal/cli/commands"
	"envrun/internal/config"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "envrun",
		Short:   "Environment-aware test file runner",
		Long:    `Run test files one environment at a time. Each file picks its environment with a @vitest-environment or @jest-environment directive; files without one use the configured default.`,
		Version: version,
		// Failing runs print their own summary
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Create initial config with defaults; commands load the config file before running
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute root command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
