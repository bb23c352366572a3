package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"envrun/internal/config"
	"envrun/internal/domain"
	"envrun/internal/environment"
	"envrun/internal/worker"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records lifecycle events in the order they happen.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeProvider struct {
	j           *journal
	setupErr    map[string]error
	teardownErr map[string]error
}

func (p *fakeProvider) Setup(_ context.Context, name string, opts environment.Options) (environment.Environment, error) {
	p.j.add("setup %s", name)
	if err := p.setupErr[name]; err != nil {
		return nil, err
	}
	return &fakeEnv{name: name, provider: p, opts: opts}, nil
}

type fakeEnv struct {
	name     string
	provider *fakeProvider
	opts     environment.Options
}

func (e *fakeEnv) Name() string            { return e.name }
func (e *fakeEnv) Vars() map[string]string { return nil }
func (e *fakeEnv) Teardown(context.Context) error {
	e.provider.j.add("teardown %s", e.name)
	return e.provider.teardownErr[e.name]
}

// fakeExecutor stands in for the test executor. Every file registers a mock
// under the same key and caches a module, the way real test code would.
type fakeExecutor struct {
	j       *journal
	state   *worker.State
	fail    map[string]error
	failing map[string]bool

	mu           sync.Mutex
	calls        [][]string
	envs         []environment.Environment
	sawMock      map[string]bool
	sawModule    map[string]bool
	currentFiles map[string]string
}

func newFakeExecutor(j *journal, state *worker.State) *fakeExecutor {
	return &fakeExecutor{
		j:            j,
		state:        state,
		fail:         map[string]error{},
		failing:      map[string]bool{},
		sawMock:      map[string]bool{},
		sawModule:    map[string]bool{},
		currentFiles: map[string]string{},
	}
}

func (e *fakeExecutor) Execute(_ context.Context, files []string, env environment.Environment) ([]domain.TestResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, files)
	e.envs = append(e.envs, env)
	key := strings.Join(files, ",")
	e.j.add("exec %s", key)

	_, e.sawMock[key] = e.state.Mocks.Lookup("shared-dep")
	_, e.sawModule[key] = e.state.Modules.Load("src/shared.ts")
	if current, ok := e.state.CurrentFile(); ok {
		e.currentFiles[key] = current
	}

	e.state.Mocks.Register("shared-dep", key)
	e.state.Modules.Store("src/shared.ts", key)

	if err := e.fail[key]; err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return []domain.TestResult{{TestPath: key, Success: !e.failing[key]}}, nil
}

type recordingObserver struct{ j *journal }

func (o recordingObserver) GroupStarted(g domain.Group) { o.j.add("observe group %s", g.Environment) }
func (o recordingObserver) FileStarted(env, file string) {
	o.j.add("observe start %s/%s", env, file)
}
func (o recordingObserver) FileFinished(r domain.TestResult) {
	o.j.add("observe done %s/%s %v", r.Environment, r.TestPath, r.Success)
}
func (o recordingObserver) GroupFinished(g domain.Group, err error) {
	o.j.add("observe end %s %v", g.Environment, err != nil)
}

type harness struct {
	cfg      *config.Config
	fs       afero.Fs
	j        *journal
	provider *fakeProvider
	exec     *fakeExecutor
	state    *worker.State
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	j := &journal{}
	state := worker.New(nil)
	cfg := config.New()
	return &harness{
		cfg:      cfg,
		fs:       fs,
		j:        j,
		provider: &fakeProvider{j: j, setupErr: map[string]error{}, teardownErr: map[string]error{}},
		exec:     newFakeExecutor(j, state),
		state:    state,
	}
}

func (h *harness) scheduler() *Scheduler {
	registry := environment.NewRegistry(h.provider)
	resolver := NewResolver(h.fs, h.cfg.Environment, 0)
	return New(h.cfg, registry, resolver, h.exec, h.state, nil)
}

func (h *harness) run(t *testing.T, files ...string) (*domain.RunReport, error) {
	t.Helper()
	return h.scheduler().Run(context.Background(), files)
}

func TestScheduler_GroupsByEnvironment(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.test": "// @vitest-environment jsdom\nit('a')",
		"b.test": "it('b')",
	})
	h.cfg.Environment = "node"

	report, err := h.run(t, "a.test", "b.test")
	require.NoError(t, err)

	// node precedes jsdom in canonical order
	assert.Equal(t, []string{
		"setup node", "exec b.test", "teardown node",
		"setup jsdom", "exec a.test", "teardown jsdom",
	}, h.j.list())

	require.Len(t, report.Groups, 2)
	assert.Equal(t, "node", report.Groups[0].Environment)
	assert.Equal(t, "jsdom", report.Groups[1].Environment)
	assert.Equal(t, []string{"b.test", "a.test"}, resultPaths(report))
	assert.Equal(t, "node", report.Results[0].Environment)
	assert.Equal(t, "jsdom", report.Results[1].Environment)
	assert.NotEmpty(t, report.RunID)
}

func TestScheduler_OrdersCustomEnvironmentsAfterBuiltins(t *testing.T) {
	h := newHarness(t, map[string]string{
		"1.test": "@vitest-environment custom-b",
		"2.test": "@jest-environment edge-runtime",
		"3.test": "@vitest-environment custom-a",
		"4.test": "",
		"5.test": "@vitest-environment custom-b",
	})

	_, err := h.run(t, "1.test", "2.test", "3.test", "4.test", "5.test")
	require.NoError(t, err)

	var setups []string
	for _, e := range h.j.list() {
		if strings.HasPrefix(e, "setup ") {
			setups = append(setups, strings.TrimPrefix(e, "setup "))
		}
	}
	assert.Equal(t, []string{"node", "edge-runtime", "custom-b", "custom-a"}, setups)
	assert.Equal(t, [][]string{{"4.test"}, {"2.test"}, {"1.test"}, {"5.test"}, {"3.test"}}, h.exec.calls)
}

func TestScheduler_PassesEnvironmentOptions(t *testing.T) {
	h := newHarness(t, map[string]string{"a.test": ""})
	h.cfg.EnvironmentOptions = map[string]any{"url": "http://localhost"}

	_, err := h.run(t, "a.test")
	require.NoError(t, err)

	require.Len(t, h.exec.envs, 1)
	env := h.exec.envs[0].(*fakeEnv)
	assert.Equal(t, environment.Options{"url": "http://localhost"}, env.opts)
}

func TestScheduler_Isolation(t *testing.T) {
	files := map[string]string{
		"a.test": "",
		"b.test": "",
		"c.test": "@vitest-environment jsdom",
	}

	t.Run("enabled hides state from later files", func(t *testing.T) {
		h := newHarness(t, files)
		h.cfg.Isolate = true

		_, err := h.run(t, "a.test", "b.test", "c.test")
		require.NoError(t, err)

		for _, f := range []string{"a.test", "b.test", "c.test"} {
			assert.False(t, h.exec.sawMock[f], "%s saw a mock registered by an earlier file", f)
			assert.False(t, h.exec.sawModule[f], "%s saw a module cached by an earlier file", f)
		}
	})

	t.Run("disabled leaks state to later files", func(t *testing.T) {
		h := newHarness(t, files)
		h.cfg.Isolate = false

		_, err := h.run(t, "a.test", "b.test", "c.test")
		require.NoError(t, err)

		assert.False(t, h.exec.sawMock["a.test"])
		assert.True(t, h.exec.sawMock["b.test"], "same group")
		assert.True(t, h.exec.sawMock["c.test"], "different group")
		assert.True(t, h.exec.sawModule["c.test"])
	})

	t.Run("registry is cleared immediately before the next file", func(t *testing.T) {
		h := newHarness(t, map[string]string{"a.test": "", "b.test": ""})
		h.cfg.Isolate = true
		s := h.scheduler()
		var before []bool
		s.SetObserver(observerFunc(func(string) {
			_, ok := h.state.Mocks.Lookup("shared-dep")
			before = append(before, ok)
		}))

		_, err := s.Run(context.Background(), []string{"a.test", "b.test"})
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false}, before)
	})
}

func TestScheduler_CurrentFile(t *testing.T) {
	for _, isolate := range []bool{true, false} {
		t.Run(fmt.Sprintf("isolate=%v", isolate), func(t *testing.T) {
			h := newHarness(t, map[string]string{"a.test": "", "b.test": ""})
			h.cfg.Isolate = isolate

			_, err := h.run(t, "a.test", "b.test")
			require.NoError(t, err)

			assert.Equal(t, "a.test", h.exec.currentFiles["a.test"])
			assert.Equal(t, "b.test", h.exec.currentFiles["b.test"])
			_, ok := h.state.CurrentFile()
			assert.False(t, ok, "cleared after the run")
		})
	}
}

func TestScheduler_ExecutionFailure(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.test": "",
		"b.test": "",
		"c.test": "",
		"d.test": "@vitest-environment jsdom",
	})
	boom := errors.New("worker crashed")
	h.exec.fail["b.test"] = boom
	s := h.scheduler()

	report, err := s.Run(context.Background(), []string{"a.test", "b.test", "c.test", "d.test"})

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "b.test", ee.File)
	assert.Equal(t, "node", ee.Env)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{
		"setup node", "exec a.test", "exec b.test", "teardown node",
	}, h.j.list(), "remaining files and groups are skipped, environment still released")
	assert.Equal(t, []string{"a.test"}, resultPaths(report))
	assert.Equal(t, PhaseFailed, s.Phase())

	_, ok := h.state.CurrentFile()
	assert.False(t, ok, "current file cleared even when the file fails")
}

func TestScheduler_FailingTestsAreNotFatal(t *testing.T) {
	h := newHarness(t, map[string]string{"a.test": "", "b.test": ""})
	h.exec.failing["a.test"] = true

	report, err := h.run(t, "a.test", "b.test")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.test", "b.test"}, resultPaths(report))
	assert.True(t, report.Failed())
	assert.Equal(t, 1, report.Groups[0].Failed)
	assert.Equal(t, 1, report.Groups[0].Passed)
}

func TestScheduler_ReleaseFailure(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.test": "",
		"b.test": "@vitest-environment jsdom",
	})
	teardownErr := errors.New("could not close window")
	h.provider.teardownErr["node"] = teardownErr

	report, err := h.run(t, "a.test", "b.test")

	var re *environment.ReleaseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "node", re.Env)
	assert.ErrorIs(t, err, teardownErr)
	assert.Equal(t, []string{"a.test"}, resultPaths(report), "the file still counts as executed")
	assert.True(t, report.Results[0].Success)
	assert.NotContains(t, h.j.list(), "setup jsdom")
}

func TestScheduler_ReleaseFailureDoesNotMaskExecutionFailure(t *testing.T) {
	h := newHarness(t, map[string]string{"a.test": ""})
	boom := errors.New("worker crashed")
	teardownErr := errors.New("could not close window")
	h.exec.fail["a.test"] = boom
	h.provider.teardownErr["node"] = teardownErr

	_, err := h.run(t, "a.test")

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, teardownErr)
	teardowns := 0
	for _, e := range h.j.list() {
		if e == "teardown node" {
			teardowns++
		}
	}
	assert.Equal(t, 1, teardowns)
}

func TestScheduler_AcquireFailure(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.test": "",
		"b.test": "@vitest-environment jsdom",
	})
	setupErr := errors.New("no display")
	h.provider.setupErr["node"] = setupErr

	report, err := h.run(t, "a.test", "b.test")

	var ae *environment.AcquireError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "node", ae.Env)
	assert.Equal(t, []string{"setup node"}, h.j.list())
	assert.Empty(t, report.Results)
}

func TestScheduler_ResolveFailure(t *testing.T) {
	h := newHarness(t, map[string]string{"a.test": ""})

	_, err := h.run(t, "a.test", "missing.test")

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Empty(t, h.j.list(), "nothing is acquired when resolution fails")
}

func TestScheduler_BrowserFastPath(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Browser = true
	h.state.Mocks.Register("stale", true)
	h.state.Modules.Store("src/shared.ts", "warm")

	report, err := h.run(t, "a.test", "b.test")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a.test", "b.test"}}, h.exec.calls, "one call for the whole batch")
	require.Len(t, h.exec.envs, 1)
	assert.Nil(t, h.exec.envs[0])
	assert.Equal(t, []string{"exec a.test,b.test"}, h.j.list(), "no environment is acquired")
	_, stale := h.state.Mocks.Lookup("stale")
	assert.False(t, stale, "mock registry cleared once")
	assert.True(t, h.exec.sawModule["a.test,b.test"], "module cache is left alone")
	assert.Len(t, report.Results, 1)
}

func TestScheduler_BrowserEmptyRunStillExecutes(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Browser = true
	h.state.Mocks.Register("stale", true)

	report, err := h.run(t)
	require.NoError(t, err)

	require.Len(t, h.exec.calls, 1, "executor is called even without files")
	assert.Empty(t, h.exec.calls[0])
	_, stale := h.state.Mocks.Lookup("stale")
	assert.False(t, stale)
	assert.Empty(t, report.Results)
}

func TestScheduler_BrowserBatchFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Browser = true
	h.exec.fail["a.test,b.test"] = errors.New("runner crashed")

	_, err := h.run(t, "a.test", "b.test")

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Empty(t, ee.File, "a batch failure is not pinned on one file")
	assert.Equal(t, []string{"a.test", "b.test"}, ee.Files)
	assert.Contains(t, err.Error(), "batch of 2 file(s)")
}

func TestScheduler_EmptyRun(t *testing.T) {
	h := newHarness(t, nil)
	s := h.scheduler()

	report, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Groups)
	assert.Empty(t, h.j.list())
	assert.Equal(t, PhaseDone, s.Phase())
}

func TestScheduler_CancelledBetweenFiles(t *testing.T) {
	h := newHarness(t, map[string]string{"a.test": "", "b.test": ""})
	ctx, cancel := context.WithCancel(context.Background())
	s := h.scheduler()
	s.SetObserver(observerFunc(func(file string) {
		if file == "a.test" {
			cancel()
		}
	}))

	_, err := s.Run(ctx, []string{"a.test", "b.test"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"setup node", "exec a.test", "teardown node"}, h.j.list())
}

func TestScheduler_Observer(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.test": "@vitest-environment jsdom",
		"b.test": "",
	})
	s := h.scheduler()
	s.SetObserver(recordingObserver{j: h.j})

	_, err := s.Run(context.Background(), []string{"a.test", "b.test"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"observe group node",
		"setup node",
		"observe start node/b.test",
		"exec b.test",
		"observe done node/b.test true",
		"teardown node",
		"observe end node false",
		"observe group jsdom",
		"setup jsdom",
		"observe start jsdom/a.test",
		"exec a.test",
		"observe done jsdom/a.test true",
		"teardown jsdom",
		"observe end jsdom false",
	}, h.j.list())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

// observerFunc calls fn with the file about to start.
type observerFunc func(file string)

func (f observerFunc) GroupStarted(domain.Group)         {}
func (f observerFunc) FileStarted(_ string, file string) { f(file) }
func (f observerFunc) FileFinished(domain.TestResult)    {}
func (f observerFunc) GroupFinished(domain.Group, error) {}

func resultPaths(r *domain.RunReport) []string {
	paths := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		paths = append(paths, res.TestPath)
	}
	return paths
}
