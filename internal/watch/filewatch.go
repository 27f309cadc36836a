package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the monitor waits after a burst of file
// events before poking the watcher.
const DefaultDebounce = 100 * time.Millisecond

// Monitor accelerates a Watcher by poking it when the store file changes,
// instead of waiting out the poll interval. It watches the store's parent
// directory (the file itself may not exist yet, or may be replaced) and
// reacts to events for the database file and its WAL sidecar.
//
// The monitor is purely an accelerator: polling remains the correctness
// mechanism, and a monitor failure only degrades latency.
type Monitor struct {
	watcher  *fsnotify.Watcher
	target   *Watcher
	debounce time.Duration

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewMonitor creates a monitor poking target on store file changes.
// debounce <= 0 uses DefaultDebounce.
func NewMonitor(target *Watcher, debounce time.Duration) (*Monitor, error) {
	if target == nil {
		return nil, fmt.Errorf("target cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Monitor{
		watcher:  fw,
		target:   target,
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the store's directory.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor already running")
	}

	dir := filepath.Dir(m.target.Path())
	if err := m.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	m.running = true
	m.wg.Add(1)
	go m.processEvents()
	return nil
}

// Stop stops the monitor and blocks until its event loop has exited.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.done)
	if err := m.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	m.wg.Wait()
	return nil
}

// processEvents collapses bursts of relevant events into single pokes.
func (m *Monitor) processEvents() {
	defer m.wg.Done()

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-m.done:
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !m.relevant(event) {
				continue
			}
			if pending == nil {
				pending = time.AfterFunc(m.debounce, m.target.Poke)
			} else {
				pending.Reset(m.debounce)
			}

		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			// Degraded acceleration only; polling still covers changes.
		}
	}
}

// relevant reports whether the event concerns the store file or its WAL
// sidecar, ignoring unrelated files in the same directory.
func (m *Monitor) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	path := m.target.Path()
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(path) ||
		name == filepath.Clean(path+"-wal") ||
		name == filepath.Clean(path+"-journal")
}
