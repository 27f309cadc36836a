// Package linecache provides the shared line collection that crosses the
// thread boundary between the sync engine and its consumers.
//
// The cache is append/clear-only and guarded by a single reader-writer
// lock. It is the only state the engine shares with other goroutines;
// everything else stays confined to the engine's tick. Reads never touch
// disk and never block on anything but the lock.
package linecache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loghound/dbtail/internal/format"
)

// ErrOutOfRange indicates a requested ordinal or range falls outside the
// currently readable lines. Requests racing a shrink land here rather than
// reading stale or torn data.
var ErrOutOfRange = errors.New("line index out of range")

// Cache is a thread-safe ordered collection of formatted lines.
//
// With maxLines == 0 every appended line is retained and readable ordinals
// are exactly [0, Len()). With a cap, the cache keeps a tail window of at
// most maxLines lines: Len() still reports the full logical length, and
// reads of evicted ordinals fail with ErrOutOfRange.
type Cache struct {
	mu    sync.RWMutex
	lines []format.Line

	// first is the ordinal of lines[0]; non-zero only in capped mode
	// after eviction.
	first int

	maxLines int
}

// New returns an empty cache with full retention.
func New() *Cache {
	return NewCapped(0)
}

// NewCapped returns an empty cache retaining at most maxLines lines.
// maxLines <= 0 means unbounded retention.
func NewCapped(maxLines int) *Cache {
	if maxLines < 0 {
		maxLines = 0
	}
	return &Cache{maxLines: maxLines}
}

// Clear removes all lines and resets the logical length to zero.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.first = 0
}

// Append adds lines at the end of the cache. The caller is responsible for
// ordinal continuity; lines arrive from the engine already numbered.
func (c *Cache) Append(lines []format.Line) {
	if len(lines) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = append(c.lines, lines...)

	if c.maxLines > 0 && len(c.lines) > c.maxLines {
		evict := len(c.lines) - c.maxLines
		c.first += evict
		// Reallocate rather than re-slice so evicted lines are freed.
		kept := make([]format.Line, c.maxLines)
		copy(kept, c.lines[evict:])
		c.lines = kept
	}
}

// Len returns the logical line count: the number of lines appended since
// the last Clear, including any evicted by the retention cap.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.first + len(c.lines)
}

// FirstOrdinal returns the lowest ordinal still readable. Always zero
// under full retention.
func (c *Cache) FirstOrdinal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.first
}

// At returns the line with the given ordinal.
func (c *Cache) At(ordinal int) (format.Line, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ordinal < c.first || ordinal >= c.first+len(c.lines) {
		return format.Line{}, fmt.Errorf("%w: %d (readable [%d, %d))",
			ErrOutOfRange, ordinal, c.first, c.first+len(c.lines))
	}
	return c.lines[ordinal-c.first], nil
}

// Range returns a copy of the lines [start, start+count).
// The entire range must be readable; a request reaching past Len() or into
// evicted lines fails with ErrOutOfRange and returns nothing.
func (c *Cache) Range(start, count int) ([]format.Line, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrOutOfRange, count)
	}
	if count == 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if start < c.first || start+count > c.first+len(c.lines) {
		return nil, fmt.Errorf("%w: [%d, %d) (readable [%d, %d))",
			ErrOutOfRange, start, start+count, c.first, c.first+len(c.lines))
	}

	out := make([]format.Line, count)
	copy(out, c.lines[start-c.first:start-c.first+count])
	return out, nil
}
