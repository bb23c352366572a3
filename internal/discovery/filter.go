package discovery

import (
	"path/filepath"
	"strings"
)

// Filter narrows discovered test files by name
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName keeps the tests matching any of the comma-separated patterns.
// A pattern without a slash is matched against the file name, one with a
// slash against the slash-separated path. "*" and "?" are wildcards; a
// wildcard pattern that does not glob-match still matches when every literal
// piece occurs in order ("*payment*" finds paymentService.test.ts). A pattern
// without wildcards matches as a substring.
func (f *Filter) FilterByName(tests []string, pattern string) []string {
	patterns := splitPatterns(pattern)
	if len(patterns) == 0 {
		return tests
	}

	var filtered []string
	for _, test := range tests {
		for _, p := range patterns {
			if matchTest(test, p) {
				filtered = append(filtered, test)
				break
			}
		}
	}
	return filtered
}

func splitPatterns(pattern string) []string {
	var out []string
	for _, p := range strings.Split(pattern, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchTest(test, pattern string) bool {
	subject := filepath.Base(test)
	if strings.Contains(pattern, "/") {
		subject = filepath.ToSlash(test)
	}

	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(subject, pattern)
	}
	if ok, err := filepath.Match(pattern, subject); err == nil && ok {
		return true
	}
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		// Anchored path patterns only glob-match
		return false
	}
	return piecesInOrder(subject, strings.FieldsFunc(pattern, func(r rune) bool { return r == '*' || r == '?' }))
}

// piecesInOrder reports whether every piece occurs in s, left to right.
// At least one piece is required.
func piecesInOrder(s string, pieces []string) bool {
	if len(pieces) == 0 {
		return false
	}
	for _, piece := range pieces {
		i := strings.Index(s, piece)
		if i < 0 {
			return false
		}
		s = s[i+len(piece):]
	}
	return true
}
