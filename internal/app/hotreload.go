package app

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls a set of files and calls back when any of them is
// modified after the watcher started. The GUI uses it to pick up conflicts
// written by a concurrent scan.
type FileWatcher struct {
	paths         []string
	checkInterval time.Duration

	mu       sync.Mutex
	baseline map[string]time.Time
	stopCh   chan struct{}
	onChange func()
}

// NewFileWatcher records the current modification time of every path.
// Missing files count as never modified.
func NewFileWatcher(checkInterval time.Duration, paths ...string) *FileWatcher {
	w := &FileWatcher{
		paths:         paths,
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
	w.ResetBaseline()
	return w
}

// OnChange sets the callback. It is called from a background goroutine.
func (w *FileWatcher) OnChange(callback func()) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Start begins polling in a background goroutine.
func (w *FileWatcher) Start() {
	w.stopCh = make(chan struct{})
	go w.watchLoop(w.stopCh)
}

// Stop stops the polling goroutine.
func (w *FileWatcher) Stop() {
	close(w.stopCh)
}

func (w *FileWatcher) watchLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !w.Changed() {
				continue
			}
			w.ResetBaseline()
			w.mu.Lock()
			cb := w.onChange
			w.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}

// Changed reports whether any file is newer than its baseline.
func (w *FileWatcher) Changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.paths {
		if modTime(p).After(w.baseline[p]) {
			return true
		}
	}
	return false
}

// ResetBaseline takes the current modification times as the new baseline.
// Call it after the session itself saved so its own writes are ignored.
func (w *FileWatcher) ResetBaseline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.baseline = make(map[string]time.Time, len(w.paths))
	for _, p := range w.paths {
		w.baseline[p] = modTime(p)
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
