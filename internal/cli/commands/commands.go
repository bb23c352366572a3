package commands

import (
	"envrun/internal/cli"
	"envrun/internal/config"

	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	config *config.Config

	Run      *RunCommand
	List     *ListCommand
	Envs     *EnvsCommand
	Failures *FailuresCommand
}

// NewCommands creates all commands. Components are built when a command
// runs, after the configuration file and flags have been applied to cfg.
func NewCommands(cfg *config.Config) *Commands {
	return &Commands{
		config:   cfg,
		Run:      NewRunCommand(cfg),
		List:     NewListCommand(cfg),
		Envs:     NewEnvsCommand(cfg),
		Failures: NewFailuresCommand(cfg),
	}
}

// loadConfig replaces the shared config in place so every command sees the
// loaded values through the pointer it was created with.
func (c *Commands) loadConfig(flags *cli.Flags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*c.config = *loaded
		return nil
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags) {
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Path to the config file (default: envrun.{yaml,json,toml} in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR")

	// Run command
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run test files grouped by environment",
		Long:    "Discover test files, resolve each file's environment from its @vitest-environment or @jest-environment directive and run the files one environment at a time",
		RunE:    c.Run.Execute,
		PreRunE: c.loadConfig(flags),
	}
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g., '*user.test.ts' or '*payment*')")
	runCmd.Flags().StringVarP(&flags.Environment, "environment", "e", "", "Environment for files without a directive (default: node)")
	runCmd.Flags().BoolVar(&flags.NoIsolate, "no-isolate", false, "Keep mocks and loaded modules between test files")
	runCmd.Flags().BoolVar(&flags.Browser, "browser", false, "Run every file in one batch without environments")
	runCmd.Flags().BoolVarP(&flags.Watch, "watch", "w", false, "Re-run changed test files until interrupted")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered tests by environment",
		Long:    "Scan test files and print them grouped by environment, in execution order, without running them",
		RunE:    c.List.Execute,
		PreRunE: c.loadConfig(flags),
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g., '*user.test.ts' or '*payment*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	listCmd.Flags().StringVarP(&flags.Environment, "environment", "e", "", "Environment for files without a directive (default: node)")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "c", false, "List test cases under each test file")
	rootCmd.AddCommand(listCmd)

	// Envs command
	envsCmd := &cobra.Command{
		Use:     "envs",
		Short:   "List known environments",
		Long:    "Print the built-in environments in execution order and the custom environments configured for this project",
		RunE:    c.Envs.Execute,
		PreRunE: c.loadConfig(flags),
	}
	rootCmd.AddCommand(envsCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Short:   "View test failures interactively",
		Long:    "Display test failures from the last test run in an interactive viewer",
		RunE:    c.Failures.Execute,
		PreRunE: c.loadConfig(flags),
	}
	rootCmd.AddCommand(failuresCmd)
}
