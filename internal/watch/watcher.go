// Package watch re-ingests record files when they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"msfcomp/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Handler is called once per settled change. removed is true when the file
// no longer exists.
type Handler func(ctx context.Context, path string, removed bool) error

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesRemoved  int
	Handled       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// Watcher watches directories for record file changes.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	dirs        []string
	match       func(path string) bool
	handler     Handler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closed      bool

	stats Stats
}

// New creates a watcher over dirs. match selects which paths are record
// files; debounce is how long a path must stay quiet before handler runs.
func New(dirs []string, match func(string) bool, debounce time.Duration, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch handler required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	tick := 100 * time.Millisecond
	if debounce < tick {
		tick = debounce / 2
		if tick <= 0 {
			tick = time.Millisecond
		}
	}

	return &Watcher{
		watcher:     fw,
		dirs:        dirs,
		match:       match,
		handler:     handler,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		tick:        tick,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start registers the directories and their subdirectories and begins
// watching in a goroutine. A watcher cannot be restarted once stopped or
// after a failed Start.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher already closed")
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			w.abort()
			return fmt.Errorf("not a directory: %s", dir)
		}
		if err := w.addTree(dir); err != nil {
			w.abort()
			return err
		}
		logging.Watch("watching directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// addTree watches root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logging.WatchDebug("watching subdirectory: %s", path)
		return nil
	})
}

// abort releases resources when Start fails before the loop is running.
func (w *Watcher) abort() {
	w.mu.Lock()
	w.running = false
	w.closed = true
	w.mu.Unlock()
	_ = w.watcher.Close()
}

// Stop stops the watcher, waits for the loop to exit and releases the
// underlying fsnotify watcher. It is safe to call without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	wasRunning := w.running
	w.running = false
	w.closed = true
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}

	stats := w.Stats()
	logging.Get(logging.CategoryWatch).StructuredLog("info", "watcher stopped", map[string]interface{}{
		"created":  stats.FilesCreated,
		"modified": stats.FilesModified,
		"removed":  stats.FilesRemoved,
		"handled":  stats.Handled,
		"errors":   stats.Errors,
	})
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
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
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchNewDir(event.Name)
			return
		}
	}
	if w.match != nil && !w.match(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "remove"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return // chmod
	}

	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	default:
		w.stats.FilesRemoved++
	}

	w.debounceMap[event.Name] = time.Now()
}

// watchNewDir adds a directory created while running. Files may land in it
// before the watch is registered, so existing record files are queued too.
func (w *Watcher) watchNewDir(dir string) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if w.match == nil || w.match(path) {
			found = append(found, path)
		}
		return nil
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		logging.WatchError("failed to watch new directory %s: %v", dir, err)
		w.stats.Errors++
	}
	logging.WatchDebug("watching new directory %s (%d record files)", dir, len(found))
	now := time.Now()
	for _, p := range found {
		w.stats.FilesCreated++
		w.debounceMap[p] = now
	}
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		_, err := os.Stat(path)
		removed := os.IsNotExist(err)

		if err := w.handler(ctx, path, removed); err != nil {
			logging.WatchError("handler failed for %s: %v", path, err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			continue
		}
		w.mu.Lock()
		w.stats.Handled++
		w.mu.Unlock()
	}
}
