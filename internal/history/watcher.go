package history

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/drydock-sh/drydock/internal/logger"
)

// Watcher keeps an Index current by rebuilding it when the history log
// changes on disk. It watches the corpus root rather than the log file
// itself so that log rotation and atomic rewrites keep triggering.
type Watcher struct {
	index     *Index
	onRebuild func(error)
	watcher   *fsnotify.Watcher

	mu          sync.Mutex
	pendingAt   time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

// WatchHistoryLog starts a background watcher that rebuilds ix whenever
// its history log is written or recreated. onRebuild, when non-nil, is
// invoked after every triggered rebuild with the rebuild's error.
func WatchHistoryLog(ix *Index, onRebuild func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(ix.root); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		index:       ix,
		onRebuild:   onRebuild,
		watcher:     fsw,
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	go w.run()
	logger.Debug("history: watching %s for changes to %s", ix.root, HistoryLogName)
	return w, nil
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() {
	w.stopped.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		if err := w.watcher.Close(); err != nil {
			logger.Warn("history: closing watcher: %v", err)
		}
	})
}

// run is the watcher event loop. Rapid write bursts from the CLI are
// debounced into a single rebuild.
func (w *Watcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
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
			logger.Warn("history: watcher error: %v", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != HistoryLogName {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pendingAt = time.Time{}
	w.mu.Unlock()

	err := w.index.Rebuild()
	if err != nil {
		logger.Warn("history: rebuild after change failed: %v", err)
	}
	if w.onRebuild != nil {
		w.onRebuild(err)
	}
}
