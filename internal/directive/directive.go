// Package directive recognizes inline environment directives in test files.
//
// A directive is an '@' followed by one of the marker words, one or more
// whitespace characters and an environment name made of word characters
// (ASCII letters, digits, underscore) and hyphens:
//
//	// @vitest-environment jsdom
//	/** @jest-environment happy-dom */
//
// The name ends on a word boundary, so trailing hyphens are not part of it.
package directive

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Markers are the directive spellings recognized after '@'. Matching is case-sensitive.
var Markers = []string{"vitest-environment", "jest-environment"}

// Find scans content once and returns the environment named by the first
// well-formed directive. Malformed directives are skipped.
func Find(content string) (string, bool) {
	for i := 0; i < len(content); i++ {
		if content[i] != '@' {
			continue
		}
		if name, ok := matchAt(content, i+1); ok {
			return name, true
		}
	}
	return "", false
}

func matchAt(s string, pos int) (string, bool) {
	rest := s[pos:]
	for _, marker := range Markers {
		if !strings.HasPrefix(rest, marker) {
			continue
		}
		if name, ok := name(s, pos+len(marker)); ok {
			return name, true
		}
	}
	return "", false
}

// name reads the whitespace run and the token that follows it.
func name(s string, pos int) (string, bool) {
	start := pos
	for pos < len(s) {
		r, size := utf8.DecodeRuneInString(s[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	if pos == start {
		return "", false
	}

	end := pos
	for end < len(s) && isTokenByte(s[end]) {
		end++
	}
	for end > pos && s[end-1] == '-' {
		end--
	}
	if end == pos {
		return "", false
	}
	return s[pos:end], true
}

func isTokenByte(c byte) bool {
	return isWordByte(c) || c == '-'
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
