// Package source is the adapter boundary between host applications and
// dbtail's watch engine. Providers claim file extensions and construct
// watch instances; the host only needs a path and, optionally, its own
// scheduler handle.
package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loghound/dbtail/internal/watch"
)

// Opener constructs a watcher for the given path.
type Opener func(path string, opts Options) (*watch.Watcher, error)

// Options carries host-supplied construction knobs shared by all
// providers. Zero values defer to the provider's defaults.
type Options struct {
	// Notifier receives change announcements; nil discards them.
	Notifier watch.Notifier

	// Scheduler folds ticks into the host's periodic-task framework;
	// nil uses the runtime timer scheduler.
	Scheduler watch.Scheduler

	// Config overrides the watcher configuration; nil uses defaults.
	Config *watch.Config
}

// registry holds registered openers by file extension (with leading dot,
// lower case).
var registry = make(map[string]Opener)

// Register adds an opener for the given extension. Called during init()
// by each provider.
func Register(ext string, opener Opener) {
	registry[strings.ToLower(ext)] = opener
}

// Extensions returns the sorted list of claimed extensions.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Claims reports whether some provider handles the path's extension.
func Claims(path string) bool {
	_, ok := registry[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open constructs a watcher for path using the provider claiming its
// extension.
func Open(path string, opts Options) (*watch.Watcher, error) {
	ext := strings.ToLower(filepath.Ext(path))
	opener, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("no provider claims %q (available: %s)",
			ext, strings.Join(Extensions(), ", "))
	}
	return opener(path, opts)
}
