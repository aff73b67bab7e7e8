package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/logging"
)

// DefaultDebounce is how long a file must be quiet before it is
// imported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher uses fsnotify to watch the import directory for new or
// rewritten exchange files and triggers a callback with
// debouncing.
type Watcher struct {
	onChange func(paths []string)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
	log      *zap.Logger
}

// NewWatcher creates a file watcher that calls onChange with the
// importable files modified once the debounce period elapses.
func NewWatcher(
	debounce time.Duration, logger *zap.Logger, onChange func(paths []string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		onChange: onChange,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
		log:      logging.OrNop(logger),
	}
	return w, nil
}

// WatchImports wires a Watcher to engine: the directory is created
// if needed, imported once, and then watched. The caller must Stop
// the returned watcher.
func WatchImports(
	ctx context.Context, engine *Engine, dir string, logger *zap.Logger,
) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating import dir: %w", err)
	}
	if _, err := engine.ImportDir(ctx, dir); err != nil {
		logging.OrNop(logger).Warn("initial import", zap.Error(err))
	}

	w, err := NewWatcher(DefaultDebounce, logger, func(paths []string) {
		if _, err := engine.ImportPaths(ctx, paths); err != nil {
			logging.OrNop(logger).Warn("import", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	if _, _, err := w.WatchRecursive(dir); err != nil {
		w.watcher.Close()
		return nil, err
	}
	w.Start()
	return w, nil
}

// WatchRecursive walks a directory tree and adds all
// subdirectories to the watch list. Returns the number
// of directories watched and unwatched (failed to add).
func (w *Watcher) WatchRecursive(root string) (watched int, unwatched int, err error) {
	err = filepath.WalkDir(root,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible dirs
			}
			if d.IsDir() {
				if addErr := w.watcher.Add(path); addErr != nil {
					unwatched++
				} else {
					watched++
				}
			}
			return nil
		})
	return watched, unwatched, err
}

// Start begins processing file events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent processes a single fsnotify event, auto-watching
// newly created directories and recording pending changes to
// importable files.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 && w.watchIfDir(event.Name) {
		return
	}
	if !IsImportFile(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = w.now()
	w.mu.Unlock()
}

// watchIfDir adds a path to the watch list if it is a directory
// and reports whether it was one.
func (w *Watcher) watchIfDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if w.watcher != nil {
		_ = w.watcher.Add(path)
	}
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	now := w.now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
		}
	}

	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		w.log.Debug("watcher: files changed, importing",
			zap.Int("files", len(ready)))
		w.onChange(ready)
	}
}
