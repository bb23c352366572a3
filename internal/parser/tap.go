package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"envrun/internal/domain"

	"gopkg.in/yaml.v3"
)

var (
	tapTestLine    = regexp.MustCompile(`^(\s*)(not ok|ok)\b\s*(\d+)?(?:\s*-\s*(.*?))?\s*(?:#\s*(?i:(skip|todo))\b.*)?$`)
	tapSummaryLine = regexp.MustCompile(`^#\s+(pass|fail|tests)\s+(\d+)\s*$`)
)

// maxOutputTail limits how much raw output is kept for failures without TAP details
const maxOutputTail = 20

// TAPParser parses TAP (Test Anything Protocol) output, including the YAML
// diagnostic blocks TAP 13 producers attach to failing tests
type TAPParser struct{}

// NewTAPParser creates a new TAPParser
func NewTAPParser() *TAPParser {
	return &TAPParser{}
}

// diagnostic is the YAML block following a test line
type diagnostic struct {
	DurationMS  float64 `yaml:"duration_ms"`
	FailureType string  `yaml:"failureType"`
	Error       string  `yaml:"error"`
	Message     string  `yaml:"message"`
	Code        string  `yaml:"code"`
	Location    string  `yaml:"location"`
	Stack       string  `yaml:"stack"`
	At          struct {
		File string `yaml:"file"`
		Line int    `yaml:"line"`
	} `yaml:"at"`
}

type tapTest struct {
	indent    int
	ok        bool
	directive string
	name      string
	line      int // index of the test line in the output
}

// ParseTestCounts extracts passed and failed test counts from TAP output.
// Returns (passed, failed). If parsing fails, returns (1,0) for success or (0,1) for failure (file-level fallback).
func (p *TAPParser) ParseTestCounts(result domain.TestResult) (passed, failed int) {
	lines := splitLines(result.Output)

	// "# pass N" / "# fail N" trailer
	havePass, haveFail := false, false
	for _, line := range lines {
		m := tapSummaryLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		switch m[1] {
		case "pass":
			passed, havePass = n, true
		case "fail":
			failed, haveFail = n, true
		}
	}
	if havePass || haveFail {
		return passed, failed
	}

	// Count top-level test lines
	tests := parseTests(lines)
	top := topLevel(tests)
	for _, t := range tests {
		if t.indent != top {
			continue
		}
		if t.ok || t.directive == "todo" {
			passed++
		} else {
			failed++
		}
	}
	if passed > 0 || failed > 0 {
		return passed, failed
	}

	// Fallback: one "test" per file
	if result.Success {
		return 1, 0
	}
	return 0, 1
}

// ParseFailure extracts one failure per failing test. Parent tests that only
// failed because a subtest did are skipped.
func (p *TAPParser) ParseFailure(result domain.TestResult) []domain.TestFailure {
	lines := splitLines(result.Output)
	var failures []domain.TestFailure

	for _, t := range parseTests(lines) {
		if t.ok || t.directive == "todo" {
			continue
		}
		diag, raw := readDiagnostic(lines, t.line+1)
		if diag.FailureType == "subtestsFailed" {
			continue
		}
		failures = append(failures, p.buildFailure(result, t, diag, raw))
	}

	if len(failures) == 0 && !result.Success {
		failures = append(failures, p.fileFailure(result, lines))
	}
	return failures
}

func (p *TAPParser) buildFailure(result domain.TestResult, t tapTest, diag diagnostic, raw string) domain.TestFailure {
	failure := domain.TestFailure{
		TestName:     t.name,
		FilePath:     result.TestPath,
		Environment:  result.Environment,
		ErrorDetails: raw,
		StackTrace:   []string{},
	}

	message := diag.Error
	if message == "" {
		message = diag.Message
	}
	failure.Message = strings.TrimSpace(message)

	for _, frame := range strings.Split(diag.Stack, "\n") {
		if frame = strings.TrimSpace(frame); frame != "" {
			failure.StackTrace = append(failure.StackTrace, frame)
		}
	}

	if diag.Location != "" {
		failure.File, failure.Line = parseLocation(diag.Location)
	} else if diag.At.File != "" {
		failure.File, failure.Line = diag.At.File, diag.At.Line
	}
	return failure
}

// fileFailure reports a failed file whose output has no failing TAP lines,
// e.g. a syntax error before any test ran.
func (p *TAPParser) fileFailure(result domain.TestResult, lines []string) domain.TestFailure {
	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < maxOutputTail; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			tail = append([]string{lines[i]}, tail...)
		}
	}
	message := strings.Join(tail, "\n")
	if message == "" && result.Error != nil {
		message = result.Error.Error()
	}
	return domain.TestFailure{
		TestName:     filepath.Base(result.TestPath),
		FilePath:     result.TestPath,
		Environment:  result.Environment,
		ErrorDetails: result.Output,
		StackTrace:   []string{},
		File:         result.TestPath,
		Message:      message,
	}
}

func parseTests(lines []string) []tapTest {
	var tests []tapTest
	for i, line := range lines {
		m := tapTestLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tests = append(tests, tapTest{
			indent:    len(m[1]),
			ok:        m[2] == "ok",
			name:      strings.TrimSpace(m[4]),
			directive: strings.ToLower(m[5]),
			line:      i,
		})
	}
	return tests
}

func topLevel(tests []tapTest) int {
	top := -1
	for _, t := range tests {
		if top == -1 || t.indent < top {
			top = t.indent
		}
	}
	return top
}

// readDiagnostic decodes the YAML block starting at lines[start], if any.
// It returns the decoded diagnostic and the raw block text.
func readDiagnostic(lines []string, start int) (diagnostic, string) {
	var diag diagnostic
	if start >= len(lines) || strings.TrimSpace(lines[start]) != "---" {
		return diag, ""
	}
	indent := len(lines[start]) - len(strings.TrimLeft(lines[start], " \t"))

	var block []string
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "..." {
			break
		}
		if len(line) >= indent {
			line = line[indent:]
		}
		block = append(block, line)
	}

	raw := strings.Join(block, "\n")
	if err := yaml.Unmarshal([]byte(raw), &diag); err != nil {
		diag.Error = fmt.Sprintf("unparsable diagnostic: %v", err)
	}
	return diag, raw
}

// parseLocation splits "path:line:col" (or "path:line") into path and line.
func parseLocation(loc string) (string, int) {
	loc = strings.TrimPrefix(loc, "file://")
	parts := strings.Split(loc, ":")
	// Walk back over numeric suffixes; the first one is the line
	end := len(parts)
	for end > 1 {
		if _, err := strconv.Atoi(parts[end-1]); err != nil {
			break
		}
		end--
	}
	if end == len(parts) {
		return loc, 0
	}
	line, _ := strconv.Atoi(parts[end])
	return strings.Join(parts[:end], ":"), line
}

func splitLines(output string) []string {
	return strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
}
