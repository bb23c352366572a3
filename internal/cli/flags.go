package cli

import "envrun/internal/config"

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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:   f.ConfigFile,
		TestPath:     f.TestPath,
		NameFilter:   f.NameFilter,
		Environment:  f.Environment,
		NoIsolate:    f.NoIsolate,
		Browser:      f.Browser,
		LogLevel:     f.LogLevel,
		TestCases:    f.TestCases,
		Watch:        f.Watch,
		OpenFailures: f.OpenFailures,
	}
}
