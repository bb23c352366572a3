package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"envrun/internal/domain"
)

// Save writes the run report and failures to the configured JSON output file.
func (s *JSONStorage) Save(report *domain.RunReport, failures []domain.TestFailure, counts Counts, runErr error) error {
	passed := 0
	failed := 0
	for _, r := range report.Results {
		if r.Success {
			passed++
		} else {
			failed++
		}
	}

	output := domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			RunID:           report.RunID,
			TotalTestFiles:  len(report.Results),
			FailedTestFiles: failed,
			PassedTestFiles: passed,
			PassedTestCases: counts.Passed,
			FailedTestCases: counts.Failed,
			Duration:        report.Duration.String(),
			DurationSeconds: report.Duration.Seconds(),
			Isolate:         s.cfg.Isolate,
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Groups:  report.Groups,
		Details: failures,
	}
	if runErr != nil {
		output.Meta.RunError = runErr.Error()
	}
	if output.Groups == nil {
		output.Groups = []domain.GroupSummary{}
	}
	if output.Details == nil {
		output.Details = []domain.TestFailure{}
	}

	return s.SaveOutput(&output)
}

// Load reads the last test results from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.TestResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.TestResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file.
func (s *JSONStorage) SaveOutput(output *domain.TestResultsOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
