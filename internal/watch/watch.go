package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/loghound/dbtail/internal/format"
	"github.com/loghound/dbtail/internal/linecache"
	"github.com/loghound/dbtail/internal/logdb"
)

// DefaultInterval is the delay between the end of one tick and the start
// of the next. A constant-interval poll with no backoff: an unchanged
// store costs one stat and one COUNT(*).
const DefaultInterval = 500 * time.Millisecond

// Source is the engine's view of an open log store. logdb.Store satisfies
// it through a thin wrapper; tests substitute recording fakes.
type Source interface {
	Count(ctx context.Context) (int, error)
	ReadRange(ctx context.Context, start, count int) (RecordCursor, error)
	Close() error
}

// RecordCursor is a lazy ordered sequence of records.
type RecordCursor interface {
	Next() bool
	Record() logdb.Record
	Err() error
	Close() error
}

// OpenFunc opens the store at path. Failures must be classified with
// logdb.ErrNotFound / logdb.ErrTransient so the engine can branch on them.
type OpenFunc func(path string) (Source, error)

func defaultOpen(path string) (Source, error) {
	store, err := logdb.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	return storeSource{store}, nil
}

// storeSource adapts *logdb.Store to the Source interface.
type storeSource struct {
	*logdb.Store
}

func (s storeSource) ReadRange(ctx context.Context, start, count int) (RecordCursor, error) {
	cur, err := s.Store.ReadRange(ctx, start, count)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// Config holds watcher configuration.
type Config struct {
	// Interval is the delay between ticks (default: DefaultInterval).
	Interval time.Duration

	// MaxLines caps in-memory line retention; 0 keeps everything.
	MaxLines int

	// TickTimeout bounds a single tick's store access; 0 means no limit.
	TickTimeout time.Duration

	// Logger for engine activity.
	Logger *log.Logger

	// Scheduler used to arrange the next tick (default: TimerScheduler).
	Scheduler Scheduler

	// Open opens the store each tick (default: logdb.OpenExisting).
	Open OpenFunc
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:  DefaultInterval,
		Logger:    log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Scheduler: TimerScheduler{},
		Open:      defaultOpen,
	}
}

// Watcher keeps a line cache synchronized with one on-disk log store.
//
// A single logical task executes ticks one at a time; a tick always fully
// completes (commit or early abort) before the next is scheduled, so the
// engine's own state needs no synchronization. The line cache and the
// published metadata are the only state crossing the thread boundary, each
// behind its own lock, and the consumer-facing read methods never touch
// the store: blocking I/O happens exclusively inside ticks.
//
// Usage:
//
//	w, err := watch.New("app.db", notifier, nil)
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(); err != nil {
//	    return err
//	}
//	defer w.Close()
type Watcher struct {
	path     string
	notifier Notifier
	config   *Config
	cache    *linecache.Cache
	logger   *log.Logger

	// mu serializes ticks, Poke, and Close. A tick holds it end to end,
	// so Close never lands mid-tick.
	mu            sync.Mutex
	started       bool
	closed        bool
	pendingCancel func()

	// pendingGen identifies the one live tick chain. A timer that fired
	// before Poke replaced it carries a stale generation and must not
	// run or reschedule, otherwise the chains multiply.
	pendingGen uint64

	// Tick-private sync state. Mutated only while mu is held.
	lastCount  int
	exists     bool
	maxLineLen int
	startTS    time.Time
	hasStart   bool

	// Published metadata, readable from any goroutine.
	stateMu sync.RWMutex
	pub     published
}

type published struct {
	exists     bool
	size       int64
	modTime    time.Time
	maxLineLen int
	startTS    time.Time
	hasStart   bool
}

// New creates a watcher for the store at path.
//
// notifier may be nil, in which case announcements are discarded.
// config may be nil for defaults; zero fields fall back to defaults.
func New(path string, notifier Notifier, config *Config) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if config == nil {
		config = DefaultConfig()
	} else {
		// Defaults are filled on a private copy; the caller's struct can
		// be reused for further watchers.
		c := *config
		config = &c
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}
	if config.Scheduler == nil {
		config.Scheduler = TimerScheduler{}
	}
	if config.Open == nil {
		config.Open = defaultOpen
	}

	return &Watcher{
		path:     path,
		notifier: notifier,
		config:   config,
		cache:    linecache.NewCapped(config.MaxLines),
		logger:   config.Logger,
	}, nil
}

// Start schedules the first tick immediately. Subsequent ticks are
// self-scheduled at the configured interval.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	w.scheduleLocked(0)
	return nil
}

// Poke requests an early tick without waiting out the current interval.
// Used by the file monitor when the store file changes. No-op before
// Start or after Close.
func (w *Watcher) Poke() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started || w.closed {
		return
	}
	if w.pendingCancel != nil {
		w.pendingCancel()
	}
	w.scheduleLocked(0)
}

// Close stops the watcher. It cancels any scheduled tick, waits for an
// in-flight tick to finish, and never interrupts one midway. In-flight
// store reads run to completion or fail naturally.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.pendingCancel != nil {
		w.pendingCancel()
		w.pendingCancel = nil
	}
	return nil
}

// Sync runs one tick synchronously. Useful for one-shot inspection and
// tests; the background schedule, if running, is unaffected beyond the
// usual tick serialization.
func (w *Watcher) Sync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.runTick()
}

func (w *Watcher) scheduleLocked(delay time.Duration) {
	if w.closed {
		return
	}
	w.pendingGen++
	gen := w.pendingGen
	w.pendingCancel = w.config.Scheduler.Schedule(delay, func() { w.tick(gen) })
}

func (w *Watcher) tick(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Cancelling a timer that already fired is a no-op, so a tick can
	// arrive here after Poke or Close replaced it. The generation check
	// keeps exactly one chain alive: a superseded tick neither runs nor
	// reschedules.
	if w.closed || gen != w.pendingGen {
		return
	}
	w.runTick()
	// Every outcome reschedules; the engine must survive arbitrary tick
	// failures because nothing restarts it from outside.
	w.scheduleLocked(w.config.Interval)
}

// runTick executes one poll-and-reconcile pass. Caller holds mu.
func (w *Watcher) runTick() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("ERROR: tick panicked, last published state preserved: %v", r)
		}
	}()

	ctx := context.Background()
	if w.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.TickTimeout)
		defer cancel()
	}

	if err := w.reconcile(ctx); err != nil {
		if errors.Is(err, logdb.ErrNotFound) || errors.Is(err, logdb.ErrTransient) {
			// Expected while the store is being replaced or removed;
			// self-corrects on a later tick.
			w.logger.Printf("store unavailable this tick: %v", err)
			w.markMissing()
			return
		}
		w.logger.Printf("ERROR: tick failed, last published state preserved: %v", err)
	}
}

// reconcile compares the store's record count against the last observed
// count and applies exactly one of: missing, rebuild, delta append, no-op.
func (w *Watcher) reconcile(ctx context.Context) error {
	exists, size, modTime, err := logdb.Stat(w.path)
	if err != nil {
		return err
	}
	if !exists {
		w.markMissing()
		return nil
	}

	src, err := w.config.Open(w.path)
	if err != nil {
		return err
	}
	defer src.Close()

	current, err := src.Count(ctx)
	if err != nil {
		return err
	}

	switch {
	case current == w.lastCount:
		// No new records; keep file metadata fresh but stay silent.
		w.exists = true
		w.publish(size, modTime)

	case current < w.lastCount:
		// Destructive rewrite: never mix pre- and post-reset lines. The
		// replacement lines are read in full before anything is cleared,
		// so a failed read aborts with the previous state intact.
		lines, err := w.readLines(ctx, src, 0, current)
		if err != nil {
			return err
		}
		w.cache.Clear()
		w.resetDerived()
		w.notifier.Reset()
		w.absorb(lines)
		w.lastCount = current
		w.exists = true
		w.publish(size, modTime)
		w.notifier.LinesAvailable(current)

	default:
		// Append-only growth: one range read covering only the delta.
		lines, err := w.readLines(ctx, src, w.lastCount, current-w.lastCount)
		if err != nil {
			return err
		}
		w.absorb(lines)
		w.lastCount = current
		w.exists = true
		w.publish(size, modTime)
		w.notifier.LinesAvailable(current)
	}
	return nil
}

// readLines reads and formats records [start, start+count). It touches no
// watcher state, so a failure leaves the previous tick's outcome intact.
func (w *Watcher) readLines(ctx context.Context, src Source, start, count int) ([]format.Line, error) {
	if count <= 0 {
		return nil, nil
	}

	cur, err := src.ReadRange(ctx, start, count)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	lines := make([]format.Line, 0, count)
	for cur.Next() {
		lines = append(lines, format.Format(cur.Record()))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(lines) != count {
		// Store changed between Count and ReadRange; rare, heals next tick.
		return nil, fmt.Errorf("%w: expected %d records at ordinal %d, read %d",
			logdb.ErrTransient, count, start, len(lines))
	}
	return lines, nil
}

// absorb commits staged lines: derived metadata first, then the cache
// append as one locked operation.
func (w *Watcher) absorb(lines []format.Line) {
	for _, line := range lines {
		if n := len(line.Text); n > w.maxLineLen {
			w.maxLineLen = n
		}
		if !w.hasStart && line.Ordinal == 0 {
			w.startTS = line.Timestamp
			w.hasStart = true
		}
	}
	w.cache.Append(lines)
}

// markMissing transitions to the not-existing state: empty cache, zero
// count. The sink hears a Reset only when there was published state to
// invalidate; repeat missing ticks stay silent.
func (w *Watcher) markMissing() {
	hadState := w.exists || w.lastCount > 0 || w.cache.Len() > 0

	w.cache.Clear()
	w.resetDerived()
	w.lastCount = 0
	w.exists = false
	w.publish(0, time.Time{})

	if hadState {
		w.notifier.Reset()
	}
}

// resetDerived clears the per-store derived state that a rebuild
// recomputes from scratch.
func (w *Watcher) resetDerived() {
	w.maxLineLen = 0
	w.startTS = time.Time{}
	w.hasStart = false
}

// publish copies the tick's sync state into the reader-visible snapshot.
func (w *Watcher) publish(size int64, modTime time.Time) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	w.pub = published{
		exists:     w.exists,
		size:       size,
		modTime:    modTime,
		maxLineLen: w.maxLineLen,
		startTS:    w.startTS,
		hasStart:   w.hasStart,
	}
}

// Path returns the watched store path.
func (w *Watcher) Path() string {
	return w.path
}

// Exists reports whether the store file existed at the last tick.
func (w *Watcher) Exists() bool {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.pub.exists
}

// Size returns the store's size in bytes at the last tick.
func (w *Watcher) Size() int64 {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.pub.size
}

// LastModified returns the store's modification time at the last tick.
func (w *Watcher) LastModified() time.Time {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.pub.modTime
}

// MaxLineLength returns the length in bytes of the longest line formatted
// since the last reset.
func (w *Watcher) MaxLineLength() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.pub.maxLineLen
}

// StartTimestamp returns the timestamp of the store's first record.
// ok is false while the store is empty or missing.
func (w *Watcher) StartTimestamp() (ts time.Time, ok bool) {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.pub.startTS, w.pub.hasStart
}

// Count returns the number of lines currently published.
func (w *Watcher) Count() int {
	return w.cache.Len()
}

// FirstOrdinal returns the lowest ordinal still readable under the
// retention cap. Always zero with full retention.
func (w *Watcher) FirstOrdinal() int {
	return w.cache.FirstOrdinal()
}

// At returns the formatted line with the given ordinal. Never blocks on
// disk; fails with linecache.ErrOutOfRange past the published count.
func (w *Watcher) At(ordinal int) (format.Line, error) {
	return w.cache.At(ordinal)
}

// Range returns a copy of the lines [start, start+count), with the same
// bounds contract as At.
func (w *Watcher) Range(start, count int) ([]format.Line, error) {
	return w.cache.Range(start, count)
}
