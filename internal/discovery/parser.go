package discovery

import (
	"fmt"
	"regexp"

	"github.com/spf13/afero"
)

// Parser parses test files to extract test cases
type Parser struct {
	fs afero.Fs
}

// NewParser creates a new Parser reading through fs
func NewParser(fs afero.Fs) *Parser {
	return &Parser{fs: fs}
}

// Matches:
// - it('creates a user', ...)
// - test("logs in", ...)
// - it.only(`renders`, ...) / test.skip / test.todo / test.concurrent
// Each quote style is its own alternative since RE2 has no backreferences.
var testCasePattern = regexp.MustCompile(
	`(?m)\b(?:it|test)(?:\.(?:only|skip|todo|concurrent|fails))?\s*\(\s*(?:'([^'\n]*)'|"([^"\n]*)"|` + "`([^`]*)`" + `)`,
)

// FindTestCases finds all test cases in a test file, in source order.
// Duplicate names are reported once.
func (p *Parser) FindTestCases(filePath string) ([]string, error) {
	content, err := afero.ReadFile(p.fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	seen := make(map[string]bool) // Use map to avoid duplicates
	var testCases []string

	for _, match := range testCasePattern.FindAllStringSubmatch(string(content), -1) {
		name := firstNonEmpty(match[1:])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		testCases = append(testCases, name)
	}

	return testCases, nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
