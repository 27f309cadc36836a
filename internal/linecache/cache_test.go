package linecache

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/loghound/dbtail/internal/format"
)

func makeLines(t *testing.T, start, count int) []format.Line {
	t.Helper()
	lines := make([]format.Line, count)
	for i := range lines {
		lines[i] = format.Line{
			Ordinal: start + i,
			Text:    fmt.Sprintf("line %d", start+i),
		}
	}
	return lines
}

func TestEmptyCache(t *testing.T) {
	c := New()

	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := c.FirstOrdinal(); got != 0 {
		t.Errorf("FirstOrdinal() = %d, want 0", got)
	}
	if _, err := c.At(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(0) error = %v, want ErrOutOfRange", err)
	}
	if _, err := c.Range(0, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Range(0, 1) error = %v, want ErrOutOfRange", err)
	}
}

func TestAppendAndRead(t *testing.T) {
	c := New()
	c.Append(makeLines(t, 0, 3))
	c.Append(makeLines(t, 3, 2))

	if got := c.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	for i := 0; i < 5; i++ {
		line, err := c.At(i)
		if err != nil {
			t.Fatalf("At(%d) error: %v", i, err)
		}
		if line.Ordinal != i {
			t.Errorf("At(%d).Ordinal = %d, want %d", i, line.Ordinal, i)
		}
		if want := fmt.Sprintf("line %d", i); line.Text != want {
			t.Errorf("At(%d).Text = %q, want %q", i, line.Text, want)
		}
	}
}

func TestAtBounds(t *testing.T) {
	c := New()
	c.Append(makeLines(t, 0, 3))

	tests := []struct {
		name    string
		ordinal int
		wantErr bool
	}{
		{"first", 0, false},
		{"last", 2, false},
		{"negative", -1, true},
		{"past end", 3, true},
		{"far past end", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.At(tt.ordinal)
			if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("At(%d) error = %v, want ErrOutOfRange", tt.ordinal, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("At(%d) unexpected error: %v", tt.ordinal, err)
			}
		})
	}
}

func TestRange(t *testing.T) {
	c := New()
	c.Append(makeLines(t, 0, 10))

	tests := []struct {
		name    string
		start   int
		count   int
		wantLen int
		wantErr bool
	}{
		{"full", 0, 10, 10, false},
		{"middle", 3, 4, 4, false},
		{"single", 9, 1, 1, false},
		{"empty", 5, 0, 0, false},
		{"past end", 8, 3, 0, true},
		{"negative start", -1, 2, 0, true},
		{"negative count", 0, -1, 0, true},
		{"entirely past end", 10, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := c.Range(tt.start, tt.count)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("Range(%d, %d) error = %v, want ErrOutOfRange", tt.start, tt.count, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Range(%d, %d) unexpected error: %v", tt.start, tt.count, err)
			}
			if len(lines) != tt.wantLen {
				t.Fatalf("Range(%d, %d) returned %d lines, want %d", tt.start, tt.count, len(lines), tt.wantLen)
			}
			for i, line := range lines {
				if line.Ordinal != tt.start+i {
					t.Errorf("lines[%d].Ordinal = %d, want %d", i, line.Ordinal, tt.start+i)
				}
			}
		})
	}
}

func TestRangeReturnsCopy(t *testing.T) {
	c := New()
	c.Append(makeLines(t, 0, 3))

	lines, err := c.Range(0, 3)
	if err != nil {
		t.Fatalf("Range error: %v", err)
	}
	lines[0].Text = "mutated"

	orig, err := c.At(0)
	if err != nil {
		t.Fatalf("At error: %v", err)
	}
	if orig.Text != "line 0" {
		t.Errorf("cache line mutated through Range result: %q", orig.Text)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Append(makeLines(t, 0, 4))
	c.Clear()

	if got := c.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
	if _, err := c.At(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(0) after Clear error = %v, want ErrOutOfRange", err)
	}

	// Reusable after Clear.
	c.Append(makeLines(t, 0, 2))
	if got := c.Len(); got != 2 {
		t.Errorf("Len() after re-append = %d, want 2", got)
	}
}

func TestCappedEviction(t *testing.T) {
	c := NewCapped(5)
	c.Append(makeLines(t, 0, 8))

	if got := c.Len(); got != 8 {
		t.Errorf("Len() = %d, want logical 8", got)
	}
	if got := c.FirstOrdinal(); got != 3 {
		t.Errorf("FirstOrdinal() = %d, want 3", got)
	}

	// Evicted ordinals are gone.
	for i := 0; i < 3; i++ {
		if _, err := c.At(i); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("At(%d) error = %v, want ErrOutOfRange", i, err)
		}
	}
	// Retained tail still reads under original ordinals.
	for i := 3; i < 8; i++ {
		line, err := c.At(i)
		if err != nil {
			t.Fatalf("At(%d) error: %v", i, err)
		}
		if line.Ordinal != i {
			t.Errorf("At(%d).Ordinal = %d, want %d", i, line.Ordinal, i)
		}
	}

	if _, err := c.Range(2, 3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Range into evicted lines error = %v, want ErrOutOfRange", err)
	}
	if _, err := c.Range(3, 5); err != nil {
		t.Errorf("Range over retained tail error: %v", err)
	}
}

func TestCappedIncrementalAppends(t *testing.T) {
	c := NewCapped(3)
	for i := 0; i < 10; i++ {
		c.Append(makeLines(t, i, 1))
	}

	if got := c.Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}
	if got := c.FirstOrdinal(); got != 7 {
		t.Errorf("FirstOrdinal() = %d, want 7", got)
	}
}

func TestClearResetsFirstOrdinal(t *testing.T) {
	c := NewCapped(2)
	c.Append(makeLines(t, 0, 6))
	c.Clear()

	if got := c.FirstOrdinal(); got != 0 {
		t.Errorf("FirstOrdinal() after Clear = %d, want 0", got)
	}
	c.Append(makeLines(t, 0, 1))
	if _, err := c.At(0); err != nil {
		t.Errorf("At(0) after Clear+Append error: %v", err)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 200; i++ {
			c.Append(makeLines(t, i, 1))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n := c.Len()
				if n > 0 {
					line, err := c.At(n - 1)
					if err != nil {
						t.Errorf("At(%d) with Len %d: %v", n-1, n, err)
						return
					}
					if line.Ordinal != n-1 {
						t.Errorf("At(%d).Ordinal = %d", n-1, line.Ordinal)
						return
					}
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	if got := c.Len(); got != 200 {
		t.Errorf("final Len() = %d, want 200", got)
	}
}
