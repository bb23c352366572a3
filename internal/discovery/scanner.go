package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Scanner scans for test files in a directory
type Scanner struct {
	fs       afero.Fs
	skipDirs map[string]bool
	include  []string
}

// NewScanner creates a new Scanner. Files whose name contains one of the
// include fragments (e.g. ".test.") are test files; skipDirs are never entered.
func NewScanner(fs afero.Fs, skipDirs []string, include []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{fs: fs, skipDirs: skipMap, include: include}
}

// IsTestFile reports whether path names a test file
func (s *Scanner) IsTestFile(path string) bool {
	name := filepath.Base(path)
	for _, fragment := range s.include {
		if fragment != "" && strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory with this name is never scanned
func (s *Scanner) SkipDir(name string) bool {
	// Skip hidden directories (starting with .)
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	return s.skipDirs[name]
}

// Scan finds all test files in the given root directory, in lexical order
func (s *Scanner) Scan(root string) ([]string, error) {
	var testfiles []string

	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && s.SkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.IsTestFile(path) {
			testfiles = append(testfiles, path)
		}
		return nil
	})

	return testfiles, err
}
