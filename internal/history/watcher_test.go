package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcherRebuildsOnLogWrite(t *testing.T) {
	root := t.TempDir()
	writeHistory(t, root, historyLine("v1", 100, "/p", "aaaa0000-0000-0000-0000-000000000000"))

	ix := NewIndex(root)
	if err := ix.Rebuild(); err != nil {
		t.Fatal(err)
	}

	rebuilt := make(chan error, 4)
	w, err := WatchHistoryLog(ix, func(err error) { rebuilt <- err })
	if err != nil {
		t.Fatalf("WatchHistoryLog: %v", err)
	}
	defer w.Close()

	writeHistory(t, root,
		historyLine("v1", 100, "/p", "aaaa0000-0000-0000-0000-000000000000"),
		historyLine("v2", 200, "/p", "bbbb0000-0000-0000-0000-000000000000"),
	)

	select {
	case err := <-rebuilt:
		if err != nil {
			t.Fatalf("rebuild callback reported: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild after log write")
	}

	if ix.Len() != 2 {
		t.Errorf("Len = %d after watched rebuild, want 2", ix.Len())
	}
	if ix.Generation() < 2 {
		t.Errorf("Generation = %d, want at least 2", ix.Generation())
	}
}

func TestWatcherHandleEventFiltering(t *testing.T) {
	logPath := filepath.Join("/corpus", HistoryLogName)
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write to the log", fsnotify.Event{Name: logPath, Op: fsnotify.Write}, true},
		{"log recreated", fsnotify.Event{Name: logPath, Op: fsnotify.Create}, true},
		{"log renamed over", fsnotify.Event{Name: logPath, Op: fsnotify.Rename}, true},
		{"chmod ignored", fsnotify.Event{Name: logPath, Op: fsnotify.Chmod}, false},
		{"unrelated file ignored", fsnotify.Event{Name: "/corpus/other.jsonl", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Watcher{debounceDur: time.Hour}
			w.handleEvent(tt.ev)
			got := !w.pendingAt.IsZero()
			if got != tt.want {
				t.Errorf("pending after event = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	ix := NewIndex(t.TempDir())
	w, err := WatchHistoryLog(ix, nil)
	if err != nil {
		t.Fatalf("WatchHistoryLog: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Close()
		w.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("double Close did not return")
	}
}
