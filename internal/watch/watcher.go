// Package watch re-runs test files when they change on disk.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors emit for one save
const DefaultDebounce = 100 * time.Millisecond

// Matcher decides which paths are watched
type Matcher interface {
	IsTestFile(path string) bool
	SkipDir(name string) bool
}

// Watcher watches a directory tree and reports changed test files in batches
type Watcher struct {
	watcher  *fsnotify.Watcher
	matcher  Matcher
	debounce time.Duration

	onError func(error)

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a watcher over every non-skipped directory under root
func New(root string, matcher Matcher) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		matcher:  matcher,
		debounce: DefaultDebounce,
		pending:  make(map[string]struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce changes the quiet period before a batch is delivered
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetErrorCallback receives watcher errors; they never stop the loop
func (w *Watcher) SetErrorCallback(cb func(error)) {
	w.onError = cb
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.matcher.SkipDir(info.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run blocks until ctx is done, calling onChange with the sorted set of
// test files written or created since the previous batch. onChange runs on
// the watch goroutine, so events arriving meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, onChange func([]string)) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			if files := w.drain(); len(files) > 0 {
				onChange(files)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handle records the event and reports whether it starts or extends a batch
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	// New directories join the watch set
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.matcher.SkipDir(info.Name()) {
				_ = w.addRecursive(event.Name)
			}
			return false
		}
	}

	if !w.matcher.IsTestFile(event.Name) {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
	return true
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.pending))
	for file := range w.pending {
		files = append(files, file)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(files)
	return files
}
