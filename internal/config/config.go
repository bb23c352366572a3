package config

import (
	"path/filepath"
	"strings"
)

// Config holds all configuration for a run
type Config struct {
	// Project settings
	ProjectPath string `mapstructure:"project_path"`
	TestPath    string `mapstructure:"test_path"`

	// Discovery settings
	Include       []string `mapstructure:"include"`
	PathsToIgnore []string `mapstructure:"paths_to_ignore"`

	// Scheduling settings
	Isolate            bool                         `mapstructure:"isolate"`
	Environment        string                       `mapstructure:"environment"`
	EnvironmentOptions map[string]any               `mapstructure:"environment_options"`
	Browser            bool                         `mapstructure:"browser"`
	KeepModules        []string                     `mapstructure:"keep_modules"`
	Environments       map[string]CustomEnvironment `mapstructure:"environments"`
	Database           DatabaseConfig               `mapstructure:"database"`

	// Execution settings
	Command []string `mapstructure:"command"`
	DotEnv  string   `mapstructure:"dotenv"`

	// Output settings
	OutputJSONFile string `mapstructure:"output_file"`
	OutputJSONDir  string `mapstructure:"output_dir"`
	LogLevel       string `mapstructure:"log_level"`

	// Command flags
	Flags Flags `mapstructure:"-"`
}

// CustomEnvironment describes hook commands for a user-defined environment
type CustomEnvironment struct {
	Setup    []string `mapstructure:"setup"`
	Teardown []string `mapstructure:"teardown"`
}

// DatabaseConfig configures the mysql environment, which creates a scratch
// database for every group that runs under it
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Prefix  string `mapstructure:"prefix"`
}

// Flags holds command-line flags
type Flags struct {
	ConfigFile   string
	TestPath     string
	NameFilter   string
	Environment  string
	NoIsolate    bool
	Browser      bool
	LogLevel     string
	TestCases    bool
	Watch        bool
	OpenFailures bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:        DefaultProjectPath,
		TestPath:           DefaultTestPath,
		Isolate:            DefaultIsolate,
		EnvironmentOptions: map[string]any{},
		Environments:       map[string]CustomEnvironment{},
		Database:           DatabaseConfig{Prefix: DefaultDatabasePrefix},
		OutputJSONFile:     DefaultOutputJSONFile,
		OutputJSONDir:      DefaultOutputJSONDir,
		LogLevel:           DefaultLogLevel,
	}
	// Copy default slices so callers can't mutate the package defaults
	cfg.Include = append([]string(nil), DefaultInclude...)
	cfg.PathsToIgnore = append([]string(nil), DefaultPathsToIgnore...)
	cfg.Command = append([]string(nil), DefaultCommand...)
	return cfg
}

// ApplyFlags applies command-line overrides on top of file configuration
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Environment != "" {
		c.Environment = flags.Environment
	}
	if flags.NoIsolate {
		c.Isolate = false
	}
	if flags.Browser {
		c.Browser = true
	}
	if flags.LogLevel != "" {
		c.LogLevel = strings.ToUpper(flags.LogLevel)
	}
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		// If TestPath is provided, make it relative to ProjectPath if it's not absolute
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the absolute path to the output JSON file so that
// run and failures always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetLogPath returns the path of the structured log file
func (c *Config) GetLogPath() string {
	return filepath.Join(c.ProjectPath, c.OutputJSONDir, DefaultLogFile)
}

// GetDotEnvPath returns the .env file passed to test commands, or "" if none
func (c *Config) GetDotEnvPath() string {
	if c.DotEnv == "" {
		return ""
	}
	if filepath.IsAbs(c.DotEnv) {
		return c.DotEnv
	}
	return filepath.Join(c.ProjectPath, c.DotEnv)
}

// CommandFor expands the command template for the given test files. An
// argument that is exactly the placeholder expands to every file; otherwise
// the files are appended when the template has no placeholder at all.
func (c *Config) CommandFor(files ...string) []string {
	args := make([]string, 0, len(c.Command)+len(files))
	expanded := false
	for _, arg := range c.Command {
		switch {
		case arg == FilePlaceholder:
			args = append(args, files...)
			expanded = true
		case strings.Contains(arg, FilePlaceholder):
			args = append(args, strings.ReplaceAll(arg, FilePlaceholder, strings.Join(files, " ")))
			expanded = true
		default:
			args = append(args, arg)
		}
	}
	if !expanded {
		args = append(args, files...)
	}
	return args
}
