package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sparkscan/internal/logging"
)

// Watcher reports new folders created under a directory once nothing has
// been written into them for the debounce period.
type Watcher struct {
	dir      string
	debounce time.Duration
	log      *logging.Logger
}

func NewWatcher(dir string, debounce time.Duration, log *logging.Logger) *Watcher {
	return &Watcher{dir: dir, debounce: debounce, log: logging.OrNop(log)}
}

// Run blocks until ctx is done, calling onFolder from the watching goroutine
// for every settled folder.
func (w *Watcher) Run(ctx context.Context, onFolder func(folder string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching for new folders", "dir", w.dir, "debounce", w.debounce)

	// last write seen per pending folder
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.debounce/4, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev, pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case now := <-ticker.C:
			for folder, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, folder)
				_ = fw.Remove(folder)
				onFolder(folder)
			}
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, pending map[string]time.Time) {
	parent := filepath.Dir(ev.Name)
	if _, ok := pending[parent]; ok {
		pending[parent] = time.Now()
		return
	}
	if filepath.Clean(parent) != filepath.Clean(w.dir) || !ev.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := fw.Add(ev.Name); err != nil {
		w.log.Warn("cannot watch new folder", "folder", ev.Name, "error", err)
	}
	pending[ev.Name] = time.Now()
	w.log.Debug("new folder", "folder", ev.Name)
}
