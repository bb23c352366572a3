package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"envrun/internal/config"
	"envrun/internal/domain"
	"envrun/internal/environment"
	"envrun/internal/execution"
	"envrun/internal/logging"
	"envrun/internal/worker"

	"github.com/google/uuid"
)

// Scheduler runs test files grouped by environment.
type Scheduler struct {
	config   *config.Config
	registry *environment.Registry
	resolver *Resolver
	executor execution.Executor
	state    *worker.State
	isolator *Isolator
	observer Observer
	log      *logging.Logger

	mu    sync.Mutex
	phase Phase
}

// New creates a Scheduler. state is the run's execution context; the
// scheduler resets it in place but never replaces it.
func New(
	cfg *config.Config,
	registry *environment.Registry,
	resolver *Resolver,
	executor execution.Executor,
	state *worker.State,
	log *logging.Logger,
) *Scheduler {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Scheduler{
		config:   cfg,
		registry: registry,
		resolver: resolver,
		executor: executor,
		state:    state,
		isolator: NewIsolator(state, cfg.Isolate),
		observer: NopObserver{},
		log:      log,
	}
}

// SetObserver sets the observer notified during runs
func (s *Scheduler) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	s.observer = o
}

// Phase returns the current phase of the run.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Scheduler) setPhase(log *logging.Logger, p Phase, args ...any) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	log.Debug("phase", append([]any{"phase", p.String()}, args...)...)
}

// Run executes files and returns what was observed. The report is returned
// even when the run fails, covering every file that ran before the failure.
func (s *Scheduler) Run(ctx context.Context, files []string) (*domain.RunReport, error) {
	report := &domain.RunReport{RunID: uuid.NewString()}
	log := s.log.WithRun(report.RunID)
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	s.setPhase(log, PhaseIdle)
	log.Info("run started", "files", len(files), "isolate", s.config.Isolate, "browser", s.config.Browser)

	var err error
	if s.config.Browser {
		err = s.runBatch(ctx, log, files, report)
	} else {
		err = s.runGrouped(ctx, log, files, report)
	}

	if err != nil {
		s.setPhase(log, PhaseFailed)
		log.Error("run failed", "error", err)
		return report, err
	}
	s.setPhase(log, PhaseDone)
	log.Info("run finished", "files", len(report.Results), "groups", len(report.Groups))
	return report, nil
}

// runBatch is the path for runs without environments: one executor call for
// every file, with a single mock registry reset up front.
func (s *Scheduler) runBatch(ctx context.Context, log *logging.Logger, files []string, report *domain.RunReport) error {
	s.state.Mocks.Clear()

	group := domain.Group{Files: files}
	report.Groups = append(report.Groups, domain.GroupSummary{})
	s.observer.GroupStarted(group)
	start := time.Now()

	s.setPhase(log, PhaseRunning, "files", len(files))
	results, err := s.executor.Execute(ctx, files, nil)
	for _, res := range results {
		report.Add(res)
		s.observer.FileFinished(res)
	}
	report.Groups[0].Duration = time.Since(start)
	if err != nil {
		err = &ExecutionError{Files: files, Err: err}
	}
	s.observer.GroupFinished(group, err)
	return err
}

func (s *Scheduler) runGrouped(ctx context.Context, log *logging.Logger, files []string, report *domain.RunReport) error {
	s.setPhase(log, PhaseResolving, "files", len(files))
	assignments, err := s.resolver.Resolve(ctx, files)
	if err != nil {
		return err
	}

	s.setPhase(log, PhaseGrouping)
	plan := Plan(assignments, s.registry.Builtins())

	for _, group := range plan {
		if err := s.runGroup(ctx, log.WithEnvironment(group.Environment), group, report); err != nil {
			return err
		}
	}
	return nil
}

// runGroup holds the group's environment for exactly the duration of its files.
func (s *Scheduler) runGroup(ctx context.Context, log *logging.Logger, group domain.Group, report *domain.RunReport) error {
	report.Groups = append(report.Groups, domain.GroupSummary{Environment: group.Environment})
	summary := &report.Groups[len(report.Groups)-1]
	s.observer.GroupStarted(group)
	start := time.Now()

	s.setPhase(log, PhaseAcquiring, "files", len(group.Files))
	err := environment.With(ctx, s.registry, group.Environment, s.options(), func(ctx context.Context, env environment.Environment) error {
		defer s.setPhase(log, PhaseReleasing)
		for _, file := range group.Files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.runFile(ctx, log, env, file, report); err != nil {
				return err
			}
		}
		return nil
	})

	summary.Duration = time.Since(start)
	var acquireErr *environment.AcquireError
	if errors.As(err, &acquireErr) {
		log.Error("environment setup failed", "error", err)
	} else if err != nil {
		log.Error("group failed", "error", err)
	} else {
		log.Debug("environment released")
	}
	s.observer.GroupFinished(group, err)
	return err
}

func (s *Scheduler) runFile(ctx context.Context, log *logging.Logger, env environment.Environment, file string, report *domain.RunReport) error {
	if s.isolator.BeforeFile() {
		log.Debug("isolation reset", "file", file)
	}

	s.state.SetCurrentFile(file)
	defer s.state.ClearCurrentFile()

	s.setPhase(log, PhaseRunning, "file", file)
	s.observer.FileStarted(env.Name(), file)

	results, err := s.executor.Execute(ctx, []string{file}, env)
	for _, res := range results {
		if res.Environment == "" {
			res.Environment = env.Name()
		}
		report.Add(res)
		s.observer.FileFinished(res)
	}
	if err != nil {
		return &ExecutionError{File: file, Env: env.Name(), Err: err}
	}
	return nil
}

func (s *Scheduler) options() environment.Options {
	if s.config.EnvironmentOptions == nil {
		return environment.Options{}
	}
	return environment.Options(s.config.EnvironmentOptions)
}
