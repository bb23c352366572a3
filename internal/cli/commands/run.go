package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"envrun/internal/config"
	"envrun/internal/discovery"
	"envrun/internal/domain"
	"envrun/internal/environment"
	"envrun/internal/execution"
	"envrun/internal/logging"
	"envrun/internal/parser"
	"envrun/internal/scheduler"
	"envrun/internal/storage"
	"envrun/internal/ui"
	"envrun/internal/watch"
	"envrun/internal/worker"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	config *config.Config
	fs     afero.Fs
	parser parser.Parser
	stderr io.Writer
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		config: cfg,
		fs:     afero.NewOsFs(),
		parser: parser.NewTAPParser(),
		stderr: os.Stderr,
	}
}

// session is everything one invocation of run shares across its runs.
// Execution state is not part of it: every run gets a fresh one.
type session struct {
	registry  *environment.Registry
	resolver  *scheduler.Resolver
	storage   storage.Storage
	formatter *ui.Formatter
	log       *logging.Logger
}

func (rc *RunCommand) newSession(log *logging.Logger, out io.Writer) *session {
	s := &session{
		registry:  newRegistry(rc.config, rc.fs),
		resolver:  scheduler.NewResolver(rc.fs, rc.config.Environment, 0),
		storage:   storage.NewJSONStorage(rc.config),
		formatter: ui.NewFormatter(rc.config, discovery.NewParser(rc.fs)),
		log:       log,
	}
	s.formatter.SetOutput(out)
	return s
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	tests, err := discover(rc.config, rc.fs)
	if err != nil {
		return err
	}

	if len(tests) == 0 && !rc.config.Flags.Watch {
		color.Yellow("No tests to execute")
		return nil
	}

	log, err := logging.NewLogger(rc.config.GetLogPath(), rc.config.LogLevel)
	if err != nil {
		return err
	}
	defer log.Close()

	s := rc.newSession(log, cmd.OutOrStdout())

	var output *domain.TestResultsOutput
	var runErr error
	if len(tests) > 0 {
		output, runErr = rc.runOnce(ctx, s, tests)
	}

	if rc.config.Flags.Watch {
		return rc.watch(ctx, s)
	}

	if output != nil && rc.config.Flags.OpenFailures && len(output.Details) > 0 {
		if err := ui.NewErrorViewer(s.storage, log).View(output); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if output != nil && output.Meta.FailedTestFiles > 0 {
		return fmt.Errorf("%d test file(s) failed", output.Meta.FailedTestFiles)
	}
	return nil
}

// runOnce runs tests through the scheduler, stores the report and prints
// the summary. The returned error is the scheduler's; failing test files
// are reported through the output only.
func (rc *RunCommand) runOnce(ctx context.Context, s *session, tests []string) (*domain.TestResultsOutput, error) {
	state := worker.New(rc.config.KeepModules)
	defer state.Close()

	sched := scheduler.New(rc.config, s.registry, s.resolver, execution.NewRunner(rc.config, state), state, s.log)
	progressBar := ui.NewProgressBar(rc.stderr, len(tests))
	sched.SetObserver(progressBar)
	report, runErr := sched.Run(ctx, tests)
	progressBar.Finish()

	var failures []domain.TestFailure
	var counts storage.Counts
	for _, result := range report.Results {
		passed, failed := rc.parser.ParseTestCounts(result)
		counts.Passed += passed
		counts.Failed += failed
		if !result.Success {
			failures = append(failures, rc.parser.ParseFailure(result)...)
		}
	}

	if err := s.storage.Save(report, failures, counts, runErr); err != nil {
		return nil, errors.Join(runErr, fmt.Errorf("failed to save test results: %w", err))
	}

	output, err := s.storage.Load()
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	s.formatter.PrintMetaStats(output)
	return output, runErr
}

// watch re-runs changed test files until ctx is cancelled
func (rc *RunCommand) watch(ctx context.Context, s *session) error {
	scanner := newScanner(rc.config, rc.fs)
	watcher, err := watch.New(rc.config.GetTestPath(), scanner)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	watcher.SetErrorCallback(func(err error) {
		s.log.Warn("watch error", "error", err)
	})

	filter := discovery.NewFilter()
	color.Cyan("Watching %s for changes (Ctrl+C to stop)", rc.config.GetTestPath())
	return watcher.Run(ctx, func(files []string) {
		files = filter.FilterByName(files, rc.config.Flags.NameFilter)
		if len(files) == 0 {
			return
		}
		if _, err := rc.runOnce(ctx, s, files); err != nil {
			color.Red("Run failed: %v", err)
		}
	})
}
