package commands

import (
	"context"

	"envrun/internal/config"
	"envrun/internal/discovery"
	"envrun/internal/domain"
	"envrun/internal/environment"
	"envrun/internal/scheduler"
	"envrun/internal/storage"
	"envrun/internal/ui"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// newScanner builds the discovery scanner from the loaded config
func newScanner(cfg *config.Config, fs afero.Fs) *discovery.Scanner {
	return discovery.NewScanner(fs, cfg.PathsToIgnore, cfg.Include)
}

// discover scans the test path and applies the name filter
func discover(cfg *config.Config, fs afero.Fs) ([]string, error) {
	tests, err := newScanner(cfg, fs).Scan(cfg.GetTestPath())
	if err != nil {
		return nil, err
	}
	return discovery.NewFilter().FilterByName(tests, cfg.Flags.NameFilter), nil
}

// newRegistry binds every configured environment to its provider. Built-ins
// and unconfigured names get a scratch environment.
func newRegistry(cfg *config.Config, fs afero.Fs) *environment.Registry {
	scratch := environment.NewScratchProvider(fs, "")
	registry := environment.NewRegistry(scratch)

	var mysqlProvider environment.Provider
	if cfg.Database.Enabled {
		mysqlProvider = environment.NewMySQLProvider(environment.MySQLSettings{
			Host:    cfg.Database.Host,
			Port:    cfg.Database.Port,
			User:    cfg.Database.User,
			Prefix:  cfg.Database.Prefix,
			EnvFile: cfg.GetDotEnvPath(),
		}, scratch)
		registry.Register(environment.MySQLName, mysqlProvider)
	}

	for name, custom := range cfg.Environments {
		var base environment.Provider = scratch
		if name == environment.MySQLName && mysqlProvider != nil {
			base = mysqlProvider
		}
		hooks := environment.Hooks{Setup: custom.Setup, Teardown: custom.Teardown}
		registry.Register(name, environment.NewHookProvider(base, hooks, cfg.ProjectPath))
	}
	return registry
}

// plan resolves and groups tests the way a run would execute them
func plan(ctx context.Context, cfg *config.Config, fs afero.Fs, registry *environment.Registry, tests []string) ([]domain.Group, error) {
	if cfg.Browser {
		return []domain.Group{{Files: tests}}, nil
	}
	assignments, err := scheduler.NewResolver(fs, cfg.Environment, 0).Resolve(ctx, tests)
	if err != nil {
		return nil, err
	}
	return scheduler.Plan(assignments, registry.Builtins()), nil
}

// failedPaths returns the files that failed in the last stored run, keyed by ui.PathKey
func failedPaths(cfg *config.Config, st storage.Storage) map[string]struct{} {
	last, err := st.Load()
	if err != nil {
		return nil
	}
	paths := make(map[string]struct{}, len(last.Details))
	for _, failure := range last.Details {
		if failure.Resolved {
			continue
		}
		paths[ui.PathKey(cfg.ProjectPath, failure.FilePath)] = struct{}{}
	}
	return paths
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
