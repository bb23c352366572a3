package config

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default test path
	DefaultTestPath = "."
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = ".envrun"
	// DefaultLogFile is the log file written inside the output directory
	DefaultLogFile = "envrun.log"
	// DefaultIsolate resets mocks and modules before every file
	DefaultIsolate = true
	// DefaultLogLevel is the default log level
	DefaultLogLevel = "INFO"
	// DefaultConfigName is the config file name looked up in the project path
	DefaultConfigName = "envrun"
	// DefaultDatabasePrefix prefixes scratch databases created by the mysql environment
	DefaultDatabasePrefix = "envrun"
	// FilePlaceholder is replaced by the test file path in Command
	FilePlaceholder = "{file}"
)

// DefaultCommand runs a file with the node test runner and TAP output
var DefaultCommand = []string{"node", "--test", "--test-reporter=tap", FilePlaceholder}

// DefaultInclude are the file name fragments that mark a test file
var DefaultInclude = []string{".test.", ".spec."}

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"node_modules",
	"vendor",
	"dist",
	"build",
	"coverage",
}
