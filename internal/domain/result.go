package domain

import "time"

// TestResult represents the result of executing a test file
type TestResult struct {
	TestPath    string        // Path to the test file that was executed
	Environment string        // Environment the file ran under
	Success     bool          // Whether the test passed
	Output      string        // Raw output from the test command
	Error       error         // Error reported by the test command, if any
	Duration    time.Duration // Time taken to execute
}

// GroupSummary describes one environment group of a run
type GroupSummary struct {
	Environment string        `json:"environment"`
	Files       int           `json:"files"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration_ns"`
}

// RunReport collects everything the scheduler observed during a run
type RunReport struct {
	RunID    string
	Results  []TestResult
	Groups   []GroupSummary
	Duration time.Duration
}

// Add records a file result under the current (last) group.
func (r *RunReport) Add(result TestResult) {
	r.Results = append(r.Results, result)
	if len(r.Groups) == 0 {
		return
	}
	g := &r.Groups[len(r.Groups)-1]
	g.Files++
	if result.Success {
		g.Passed++
	} else {
		g.Failed++
	}
}

// Failed reports whether any executed file failed.
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if !res.Success {
			return true
		}
	}
	return false
}

// TestResultsMeta contains metadata about a test run
type TestResultsMeta struct {
	RunID           string  `json:"run_id"`
	TotalTestFiles  int     `json:"total_test_files"`
	FailedTestFiles int     `json:"failed_test_files"`
	PassedTestFiles int     `json:"passed_test_files"`
	PassedTestCases int     `json:"passed_test_cases"`
	FailedTestCases int     `json:"failed_test_cases"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Isolate         bool    `json:"isolate"`
	Timestamp       string  `json:"timestamp"`
	RunError        string  `json:"run_error,omitempty"`
}

// TestResultsOutput is the complete output structure for test results
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Groups  []GroupSummary  `json:"groups"`
	Details []TestFailure   `json:"details"`
}
