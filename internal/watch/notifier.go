// Package watch implements the incremental sync engine that keeps an
// in-memory line cache aligned with an on-disk log store.
package watch

// Notifier receives change announcements from the sync engine.
//
// The engine guarantees ordering: when a store shrinks or disappears,
// Reset is always delivered before any subsequent LinesAvailable. The
// engine's correctness does not depend on how implementations react, and
// implementations must not call back into the watcher's read surface from
// inside a notification if they intend to block (notifications are
// delivered from the engine's tick).
type Notifier interface {
	// Reset announces that the source changed identity (rewritten or
	// removed) and everything previously cached from it is invalid.
	Reset()

	// LinesAvailable announces that lines [0, total) are now readable.
	LinesAvailable(total int)
}

// NopNotifier is a Notifier that ignores all announcements.
type NopNotifier struct{}

func (NopNotifier) Reset()             {}
func (NopNotifier) LinesAvailable(int) {}
