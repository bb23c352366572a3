package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"envrun/internal/config"
	"envrun/internal/discovery"
	"envrun/internal/domain"

	"github.com/fatih/color"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	parser *discovery.Parser
	out    io.Writer
}

// NewFormatter creates a new Formatter writing to stdout
func NewFormatter(cfg *config.Config, parser *discovery.Parser) *Formatter {
	return &Formatter{
		config: cfg,
		parser: parser,
		out:    os.Stdout,
	}
}

// SetOutput redirects the formatter's output
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
}

func (f *Formatter) line(c color.Attribute, format string, a ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	color.New(c).Fprintf(f.out, format, a...)
}

func (f *Formatter) row(label string, c color.Attribute, value string) {
	fmt.Fprintf(f.out, "│ %-31s │ ", label)
	color.New(c).Fprintf(f.out, "%-27s", value)
	fmt.Fprint(f.out, " │\n")
}

const rowSeparator = "├─────────────────────────────────┼─────────────────────────────┤"

// PrintMetaStats displays the statistics of a stored run
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) {
	meta := output.Meta

	// Print header
	fmt.Fprint(f.out, "\n")
	f.line(color.FgCyan, "╔═══════════════════════════════════════════════════════════════╗")
	f.line(color.FgCyan, "║                    Test Execution Statistics                  ║")
	f.line(color.FgCyan, "╚═══════════════════════════════════════════════════════════════╝\n")

	rows := []struct {
		label string
		color color.Attribute
		value string
	}{
		{"Total Test Files", color.FgWhite, fmt.Sprint(meta.TotalTestFiles)},
		{"Passed Test Files", color.FgGreen, fmt.Sprint(meta.PassedTestFiles)},
		{"Failed Test Files", color.FgRed, fmt.Sprint(meta.FailedTestFiles)},
		{"Passed Test Cases", color.FgGreen, fmt.Sprint(meta.PassedTestCases)},
		{"Failed Test Cases", color.FgRed, fmt.Sprint(meta.FailedTestCases)},
		{"Duration", color.FgWhite, fmt.Sprintf("%.2fs", meta.DurationSeconds)},
		{"Isolate", color.FgWhite, fmt.Sprint(meta.Isolate)},
		{"Timestamp", color.FgWhite, meta.Timestamp},
	}

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	for i, r := range rows {
		if i > 0 {
			fmt.Fprintln(f.out, rowSeparator)
		}
		f.row(r.label, r.color, r.value)
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	f.printGroups(output.Groups)

	// Print summary line
	fmt.Fprintln(f.out)
	switch {
	case meta.RunError != "":
		f.line(color.FgRed, "✗ Run aborted: %s", meta.RunError)
		if len(output.Details) > 0 {
			fmt.Fprintln(f.out)
			f.printFailedTestsTree(output.Details)
		}
	case meta.FailedTestFiles == 0:
		f.line(color.FgGreen, "✓ All tests passed!")
	default:
		f.line(color.FgRed, "✗ %d test file(s) failed with %d test case failure(s)", meta.FailedTestFiles, meta.FailedTestCases)
		fmt.Fprintln(f.out)
		f.printFailedTestsTree(output.Details)
	}
}

// printGroups prints one line per environment group in execution order
func (f *Formatter) printGroups(groups []domain.GroupSummary) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintln(f.out)
	f.line(color.FgCyan, "Environments:")
	for _, g := range groups {
		name := g.Environment
		if name == "" {
			name = "(batch)"
		}
		fmt.Fprintf(f.out, "  %-16s %3d file(s)  ", name, g.Files)
		color.New(color.FgGreen).Fprintf(f.out, "%d passed", g.Passed)
		fmt.Fprint(f.out, "  ")
		color.New(color.FgRed).Fprintf(f.out, "%d failed", g.Failed)
		fmt.Fprintf(f.out, "  %.2fs\n", g.Duration.Seconds())
	}
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
	IsFile   bool
}

// printFailedTestsTree prints a tree structure of failed tests
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	if len(failures) == 0 {
		return
	}

	// Group failures by file path
	fileMap := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		fileMap[failure.FilePath] = append(fileMap[failure.FilePath], failure)
	}

	root := &TreeNode{
		Name:     "",
		Children: make(map[string]*TreeNode),
		IsFile:   false,
	}

	// Process each file
	for filePath, fileFailures := range fileMap {
		rel := f.relative(filePath)
		parts := strings.Split(strings.TrimPrefix(filepath.ToSlash(rel), "./"), "/")
		current := root

		// Navigate/create tree nodes for each path part
		for i, part := range parts {
			if part == "" {
				continue
			}

			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
			}

			current = current.Children[part]

			// If this is the file (last part), add failures
			if i == len(parts)-1 {
				current.Failures = fileFailures
			}
		}
	}

	// Print tree recursively
	f.printTreeNode(root, "", true)
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string, isRoot bool) {
	// Sort children for consistent output
	var keys []string
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		isLastChild := i == len(keys)-1

		var connector string
		if isRoot {
			connector = ""
		} else if isLastChild {
			connector = prefix + "   |_"
		} else {
			connector = prefix + "  |_"
		}

		if child.IsFile {
			env := ""
			if len(child.Failures) > 0 && child.Failures[0].Environment != "" {
				env = " " + color.New(color.FgHiBlack).Sprintf("[%s]", child.Failures[0].Environment)
			}
			f.line(color.FgYellow, "%s%s%s", connector, child.Name, env)
		} else {
			f.line(color.FgCyan, "%s%s", connector, child.Name)
		}

		// Print test cases if this is a file
		if child.IsFile && len(child.Failures) > 0 {
			for j, failure := range child.Failures {
				isLastCase := j == len(child.Failures)-1
				var casePrefix string
				if isLastChild {
					if isLastCase {
						casePrefix = strings.ReplaceAll(prefix, "|", " ") + "        |_"
					} else {
						casePrefix = prefix + "  |        |_"
					}
				} else {
					if isLastCase {
						casePrefix = prefix + "  |        |_"
					} else {
						casePrefix = prefix + "  |  |     |_"
					}
				}
				f.line(color.FgRed, "%s%s", casePrefix, failure.TestName)
			}
		}

		var newPrefix string
		if isRoot {
			newPrefix = "  "
		} else if isLastChild {
			newPrefix = strings.ReplaceAll(prefix, "|", " ") + "  "
		} else {
			newPrefix = prefix + "  |"
		}
		f.printTreeNode(child, newPrefix, false)
	}
}

// CountTestCases returns the total number of test cases across the given test files.
func (f *Formatter) CountTestCases(tests []string) (int, error) {
	var total int
	for _, test := range tests {
		cases, err := f.parser.FindTestCases(test)
		if err != nil {
			return 0, err
		}
		total += len(cases)
	}
	return total, nil
}

func (f *Formatter) relative(path string) string {
	if rel, err := filepath.Rel(f.config.ProjectPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// PathKey returns the key under which a test file is matched against the
// failures of the last run: project-relative, slash-separated, lower case.
func PathKey(projectPath, path string) string {
	p := path
	if projectPath != "" {
		if rel, err := filepath.Rel(projectPath, path); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return strings.ToLower(filepath.ToSlash(p))
}

// PrintTestList prints the groups of a run plan in execution order,
// optionally with test cases. failedPaths is optional; if set, files in this
// set (keyed by PathKey) are marked with [F] in red (from last run).
func (f *Formatter) PrintTestList(groups []domain.Group, showTestCases bool, failedPaths map[string]struct{}) {
	total := 0
	for _, g := range groups {
		total += len(g.Files)
	}
	if showTestCases {
		var files []string
		for _, g := range groups {
			files = append(files, g.Files...)
		}
		cases, err := f.CountTestCases(files)
		if err != nil {
			f.line(color.FgGreen, "Found %d test file(s) in %d environment(s) with test cases:\n", total, len(groups))
		} else {
			f.line(color.FgGreen, "Found %d test file(s) in %d environment(s) with %d test case(s):\n", total, len(groups), cases)
		}
	} else {
		f.line(color.FgGreen, "Found %d test file(s) in %d environment(s):\n", total, len(groups))
	}

	for gi, group := range groups {
		name := group.Environment
		if name == "" {
			name = "(batch)"
		}
		f.line(color.FgMagenta, "%s (%d)", name, len(group.Files))

		for i, test := range group.Files {
			failMarker := ""
			if len(failedPaths) > 0 {
				if _, ok := failedPaths[PathKey(f.config.ProjectPath, test)]; ok {
					failMarker = " " + color.RedString("[F]")
				}
			}

			isLastFile := i == len(group.Files)-1
			if isLastFile {
				f.line(color.FgCyan, "└── %s%s", f.relative(test), failMarker)
			} else {
				f.line(color.FgCyan, "├── %s%s", f.relative(test), failMarker)
			}

			if showTestCases {
				f.printTestCases(test, isLastFile)
			}
		}

		// Add spacing between groups (except for the last one)
		if gi < len(groups)-1 {
			fmt.Fprintln(f.out)
		}
	}
}

func (f *Formatter) printTestCases(test string, isLastFile bool) {
	branch := "│   "
	if isLastFile {
		branch = "    "
	}

	testCases, err := f.parser.FindTestCases(test)
	if err != nil {
		f.line(color.FgRed, "%s└── error reading test file: %v", branch, err)
		return
	}
	if len(testCases) == 0 {
		fmt.Fprintf(f.out, "%s└── %s\n", branch, color.RedString("(no test cases found)"))
		return
	}
	for j, testCase := range testCases {
		connector := "├── "
		if j == len(testCases)-1 {
			connector = "└── "
		}
		fmt.Fprintf(f.out, "%s%s%s\n", branch, connector, color.YellowString(testCase))
	}
}

// PrintEnvironments prints the built-in environments in execution order,
// then every configured custom environment.
func (f *Formatter) PrintEnvironments(builtins, custom []string, defaultEnv string) {
	f.line(color.FgGreen, "Built-in environments (execution order):")
	for i, name := range builtins {
		marker := ""
		if name == defaultEnv {
			marker = color.YellowString(" (default)")
		}
		fmt.Fprintf(f.out, "  %d. %s%s\n", i+1, name, marker)
	}

	fmt.Fprintln(f.out)
	if len(custom) == 0 {
		f.line(color.FgCyan, "No custom environments configured.")
		return
	}
	f.line(color.FgGreen, "Custom environments (run after built-ins, in first-seen order):")
	for _, name := range custom {
		marker := ""
		if name == defaultEnv {
			marker = color.YellowString(" (default)")
		}
		fmt.Fprintf(f.out, "  - %s%s\n", name, marker)
	}
}
