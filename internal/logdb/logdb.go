// Package logdb provides read and write access to on-disk log stores.
//
// A log store is a SQLite database with a single log_entries table holding
// structured log records in insertion order. dbtail consumes stores written
// by external applications; the write surface in this package exists for the
// seed and ingest tools and for tests.
//
// The database is opened in embedded mode via ncruces/go-sqlite3 with WAL
// enabled so the watched application can keep appending while dbtail reads.
//
// Records are addressed by ordinal: a zero-based, contiguous sequence number
// equal to the record's position in insertion order. Ordinals are stable as
// long as the store is only appended to; a rewrite of the store restarts
// them from zero.
//
// Usage (read side):
//
//	store, err := logdb.OpenExisting("app.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	total, err := store.Count(ctx)
//	cur, err := store.ReadRange(ctx, 0, total)
//	defer cur.Close()
//	for cur.Next() {
//	    rec := cur.Record()
//	    ...
//	}
package logdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Sentinel errors classifying store access failures. The watch engine
// branches on these with errors.Is rather than inspecting error strings.
var (
	// ErrNotFound indicates the store path does not exist. This is a normal
	// condition for a watched path, not a fault.
	ErrNotFound = errors.New("log store not found")

	// ErrTransient indicates an I/O failure that is expected to heal on a
	// later attempt, such as the store disappearing between a stat and the
	// open call, or a read failing while the file is being replaced.
	ErrTransient = errors.New("transient log store error")
)

// Record is one structured log record as stored in a log store.
type Record struct {
	// Ordinal is the zero-based position of the record in insertion order.
	// It doubles as the public line number once the record is formatted.
	Ordinal int

	// Ticks is the record timestamp as integer nanoseconds since the Unix
	// epoch.
	Ticks int64

	Thread  string
	Level   string
	Logger  string
	Message string
}

// Timestamp decodes the record's tick count into a UTC time.
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Ticks).UTC()
}

// classify wraps a read failure, tagging it transient only when the
// SQLite error code names a locking or I/O condition a later attempt can
// heal. Schema-level failures ("no such table" from a database that is
// not a log store) pass through unwrapped so the engine treats them as
// unexpected rather than as a store that is forever about to appear.
func classify(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sqlite3.BUSY) ||
		errors.Is(err, sqlite3.LOCKED) ||
		errors.Is(err, sqlite3.IOERR) ||
		errors.Is(err, sqlite3.CANTOPEN) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Store wraps a log store database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) a read-write log store at path.
//
// The parent directory is created if missing. WAL mode and a busy timeout
// are enabled so readers and the writer can overlap. Intended for the seed
// and ingest tools and for tests; the watch engine uses OpenExisting.
//
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	store := &Store{conn: conn, path: path}
	if err := store.configure(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

// OpenExisting opens the log store at path for reading.
//
// A missing path is reported as ErrNotFound. Any failure after the path
// was seen to exist (the file vanishing before the open call, the database
// being mid-rewrite) is reported as ErrTransient; both are expected
// conditions for a watched store and self-correct on a later attempt.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrTransient, path, err)
	}

	// The file existed a moment ago; from here on every failure is the
	// disappear-then-open race or an in-progress rewrite.
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTransient, path, err)
	}

	store := &Store{conn: conn, path: path}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrTransient, path, err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: configure %s: %v", ErrTransient, path, err)
	}

	return store, nil
}

// configure applies the connection settings shared by all writable opens.
func (s *Store) configure() error {
	if err := s.conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping store: %w", err)
	}

	s.conn.SetMaxOpenConns(25)
	s.conn.SetMaxIdleConns(5)
	s.conn.SetConnMaxLifetime(5 * time.Minute)

	// WAL lets dbtail read while the producing application appends.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close closes the store connection.
// For writable stores a WAL checkpoint is attempted first so all appended
// records land in the main database file.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	// Best effort; read-only connections reject the checkpoint.
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the log_entries table if it doesn't exist.
// Idempotent; safe to call on every writable open.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS log_entries (
		entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticks    INTEGER NOT NULL,
		thread   TEXT NOT NULL DEFAULT '',
		level    TEXT NOT NULL DEFAULT '',
		logger   TEXT NOT NULL DEFAULT '',
		message  TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_entries_ticks ON log_entries(ticks);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Count returns the total number of records in the store.
// Locking and I/O failures are reported as ErrTransient; anything else
// (a missing table, a corrupt schema) is passed through unclassified.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM log_entries").Scan(&n)
	if err != nil {
		return 0, classify(err, "count")
	}
	return n, nil
}

// ReadRange returns a cursor over records [start, start+count) in ordinal
// order. The caller owns the cursor and must Close it.
//
// The range must lie within the store's current Count; the reader does not
// truncate oversized requests, it simply yields what exists and the caller
// is responsible for noticing the shortfall (a bounds mismatch is a caller
// bug, not a reader-recoverable condition).
func (s *Store) ReadRange(ctx context.Context, start, count int) (*Cursor, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, start+count)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT ticks, thread, level, logger, message
		FROM log_entries
		ORDER BY entry_id
		LIMIT ? OFFSET ?`, count, start)
	if err != nil {
		return nil, classify(err, "read range [%d, %d)", start, start+count)
	}

	return &Cursor{rows: rows, next: start}, nil
}

// Append inserts records at the end of the store in one transaction.
// Record ordinals are assigned by the store and the Ordinal field on the
// inputs is ignored.
func (s *Store) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO log_entries (ticks, thread, level, logger, message)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare append: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Ticks, rec.Thread, rec.Level, rec.Logger, rec.Message); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

// Cursor is a lazy, ordered sequence of records produced by ReadRange.
// It decodes rows on demand; the underlying query stays open until Close.
type Cursor struct {
	rows *sql.Rows
	next int
	rec  Record
	err  error
}

// Next advances to the next record. It returns false when the range is
// exhausted or a read error occurred; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	rec := Record{Ordinal: c.next}
	if err := c.rows.Scan(&rec.Ticks, &rec.Thread, &rec.Level, &rec.Logger, &rec.Message); err != nil {
		c.err = classify(err, "scan record %d", c.next)
		return false
	}

	c.rec = rec
	c.next++
	return true
}

// Record returns the record at the cursor's current position.
// Only valid after a true return from Next.
func (c *Cursor) Record() Record {
	return c.rec
}

// Err returns the first error encountered while iterating.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return classify(err, "iterate")
	}
	return nil
}

// Close releases the cursor's underlying query.
func (c *Cursor) Close() error {
	return c.rows.Close()
}

// Stat reports whether the store file exists along with its size and
// modification time. It never opens the database.
func Stat(path string) (exists bool, size int64, modTime time.Time, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, time.Time{}, nil
		}
		return false, 0, time.Time{}, fmt.Errorf("%w: stat %s: %v", ErrTransient, path, err)
	}
	return true, info.Size(), info.ModTime(), nil
}
