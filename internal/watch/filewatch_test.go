package watch

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newMonitorTarget(t *testing.T, dir string) *Watcher {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)

	w, err := New(filepath.Join(dir, "app.db"), nil, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestNewMonitorValidation(t *testing.T) {
	if _, err := NewMonitor(nil, 0); err == nil {
		t.Error("NewMonitor(nil) succeeded, want error")
	}
}

func TestMonitorRelevant(t *testing.T) {
	dir := t.TempDir()
	w := newMonitorTarget(t, dir)

	m, err := NewMonitor(w, 0)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Stop()

	path := w.Path()
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to store", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create store", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"remove store", fsnotify.Event{Name: path, Op: fsnotify.Remove}, true},
		{"rename store", fsnotify.Event{Name: path, Op: fsnotify.Rename}, true},
		{"write to wal", fsnotify.Event{Name: path + "-wal", Op: fsnotify.Write}, true},
		{"write to journal", fsnotify.Event{Name: path + "-journal", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"unrelated file", fsnotify.Event{Name: filepath.Join(dir, "other.txt"), Op: fsnotify.Write}, false},
		{"similar prefix", fsnotify.Event{Name: path + ".bak", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v %v) = %v, want %v", tt.event.Name, tt.event.Op, got, tt.want)
			}
		})
	}
}

func TestMonitorStartStop(t *testing.T) {
	dir := t.TempDir()
	w := newMonitorTarget(t, dir)

	m, err := NewMonitor(w, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start succeeded, want error")
	}

	// Touch the store file so the event loop has something to chew on
	// before shutdown.
	if err := os.WriteFile(w.Path(), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
