package logdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a writable store with schema in a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return store
}

func appendTestRecords(t *testing.T, store *Store, n int) {
	t.Helper()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano()
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Ticks:   base + int64(i)*int64(time.Millisecond),
			Thread:  "main",
			Level:   "INFO",
			Logger:  "test",
			Message: fmt.Sprintf("message %d", i),
		}
	}
	if err := store.Append(context.Background(), records); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestOpenExistingMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.db")

	_, err := OpenExisting(path)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenExisting(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCountEmpty(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestAppendAndCount(t *testing.T) {
	store := setupTestStore(t)
	appendTestRecords(t, store, 7)

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 7 {
		t.Errorf("Count = %d, want 7", n)
	}
}

func TestReadRangeFull(t *testing.T) {
	store := setupTestStore(t)
	appendTestRecords(t, store, 5)

	cur, err := store.ReadRange(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	defer cur.Close()

	var got []Record
	for cur.Next() {
		got = append(got, cur.Record())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}

	if len(got) != 5 {
		t.Fatalf("read %d records, want 5", len(got))
	}
	for i, rec := range got {
		if rec.Ordinal != i {
			t.Errorf("record %d Ordinal = %d, want %d", i, rec.Ordinal, i)
		}
		if want := fmt.Sprintf("message %d", i); rec.Message != want {
			t.Errorf("record %d Message = %q, want %q", i, rec.Message, want)
		}
	}
}

func TestReadRangeDelta(t *testing.T) {
	store := setupTestStore(t)
	appendTestRecords(t, store, 10)

	// Read only the tail [6, 10); ordinals must reflect absolute position.
	cur, err := store.ReadRange(context.Background(), 6, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	defer cur.Close()

	var got []Record
	for cur.Next() {
		got = append(got, cur.Record())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("read %d records, want 4", len(got))
	}
	for i, rec := range got {
		want := 6 + i
		if rec.Ordinal != want {
			t.Errorf("record %d Ordinal = %d, want %d", i, rec.Ordinal, want)
		}
		if wantMsg := fmt.Sprintf("message %d", want); rec.Message != wantMsg {
			t.Errorf("record %d Message = %q, want %q", i, rec.Message, wantMsg)
		}
	}
}

func TestReadRangeInvalid(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.ReadRange(context.Background(), -1, 2); err == nil {
		t.Error("ReadRange(-1, 2) succeeded, want error")
	}
	if _, err := store.ReadRange(context.Background(), 0, -1); err == nil {
		t.Error("ReadRange(0, -1) succeeded, want error")
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Append(context.Background(), nil); err != nil {
		t.Fatalf("Append(nil): %v", err)
	}
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	store := setupTestStore(t)
	appendTestRecords(t, store, 3)

	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count after re-init = %d, want 3", n)
	}
}

func TestCountWithoutSchemaIsNotTransient(t *testing.T) {
	// A .db file that is not a log store: the table is missing. That is
	// a permanent condition, not one a later tick can heal.
	path := filepath.Join(t.TempDir(), "plain.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, err = store.Count(context.Background())
	if err == nil {
		t.Fatal("Count on schemaless store succeeded, want error")
	}
	if errors.Is(err, ErrTransient) {
		t.Errorf("missing-table error classified transient: %v", err)
	}
}

func TestReadRangeWithoutSchemaIsNotTransient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, err = store.ReadRange(context.Background(), 0, 1)
	if err == nil {
		t.Fatal("ReadRange on schemaless store succeeded, want error")
	}
	if errors.Is(err, ErrTransient) {
		t.Errorf("missing-table error classified transient: %v", err)
	}
}

func TestOpenExistingReadsWriterOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	writer, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := writer.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	appendTestRecords(t, writer, 4)
	if err := writer.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	reader, err := OpenExisting(path)
	if err != nil {
		t.Fatalf("OpenExisting: %v", err)
	}
	defer reader.Close()

	n, err := reader.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
}

func TestRecordTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, time.UTC)
	rec := Record{Ticks: want.UnixNano()}

	got := rec.Timestamp()
	if !got.Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("Timestamp() location = %v, want UTC", got.Location())
	}
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.db")

	exists, size, _, err := Stat(missing)
	if err != nil {
		t.Fatalf("Stat(missing): %v", err)
	}
	if exists {
		t.Error("Stat(missing) exists = true, want false")
	}
	if size != 0 {
		t.Errorf("Stat(missing) size = %d, want 0", size)
	}

	store := setupTestStore(t)
	appendTestRecords(t, store, 2)

	exists, size, modTime, err := Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !exists {
		t.Error("Stat exists = false, want true")
	}
	if size <= 0 {
		t.Errorf("Stat size = %d, want > 0", size)
	}
	if modTime.IsZero() {
		t.Error("Stat modTime is zero")
	}
}
