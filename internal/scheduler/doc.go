// Package scheduler runs a batch of test files grouped by execution
// environment.
//
// A run resolves one environment per file (inline directive, then the
// configured default, then "node"), groups files by environment keeping
// their input order, and orders the groups: built-in environments first in
// canonical order, then custom environments in first-seen order. Each group
// acquires its environment once, runs its files one at a time and releases
// the environment afterwards, whatever happened inside. With isolation
// enabled the mock registry and module cache are reset before every file.
//
// Groups and files never run concurrently. The first fatal failure stops
// the run once the current environment has been released.
package scheduler
