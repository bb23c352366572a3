package execution

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"envrun/internal/config"
	"envrun/internal/domain"
	"envrun/internal/environment"
	"envrun/internal/worker"

	"github.com/joho/godotenv"
)

// Variables exported to every test command
const (
	VarFile    = "ENVRUN_FILE"
	VarIsolate = "ENVRUN_ISOLATE"
)

// dotenvModule is the module cache id of the parsed .env file
const dotenvModule = "env:dotenv"

// Runner executes test files with the configured command
type Runner struct {
	config *config.Config
	state  *worker.State
}

// NewRunner creates a new Runner
func NewRunner(cfg *config.Config, state *worker.State) *Runner {
	return &Runner{config: cfg, state: state}
}

// Execute runs the command once for files and returns a single result.
// A command that exits non-zero is a failed result; a command that cannot
// be started at all is an error.
func (r *Runner) Execute(ctx context.Context, files []string, env environment.Environment) ([]domain.TestResult, error) {
	result, err := r.Run(ctx, files, env)
	if err != nil {
		return nil, err
	}
	return []domain.TestResult{result}, nil
}

// Run executes the test command for files inside env
func (r *Runner) Run(ctx context.Context, files []string, env environment.Environment) (domain.TestResult, error) {
	args := r.config.CommandFor(files...)
	if len(args) == 0 {
		return domain.TestResult{}, errors.New("empty test command")
	}

	vars, err := r.dotenv()
	if err != nil {
		return domain.TestResult{}, err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.config.ProjectPath
	cmd.Env = environment.Environ(env)
	for k, v := range vars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("%s=%s", VarFile, strings.Join(files, " ")),
		fmt.Sprintf("%s=%t", VarIsolate, r.config.Isolate),
	)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	result := domain.TestResult{
		TestPath: strings.Join(files, " "),
		Success:  err == nil,
		Output:   string(output),
		Error:    err,
		Duration: time.Since(start),
	}
	if env != nil {
		result.Environment = env.Name()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("start %s: %w", args[0], err)
		}
	}
	return result, nil
}

// dotenv returns the configured .env values. The parsed file is memoized in
// the module cache, so it is read again after an isolation reset.
func (r *Runner) dotenv() (map[string]string, error) {
	path := r.config.GetDotEnvPath()
	if path == "" {
		return nil, nil
	}
	values, err := r.state.Modules.GetOrLoad(dotenvModule, func() (any, error) {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read dotenv %s: %w", path, err)
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return values.(map[string]string), nil
}
