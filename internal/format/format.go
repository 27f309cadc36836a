// Package format turns raw log records into display lines.
//
// Formatting is a pure presentation step: no I/O, no shared state, and a
// byte-stable output contract, because consumers key scroll positions and
// search results off the rendered text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/loghound/dbtail/internal/logdb"
)

// Severity is the classification extracted from a record's level column.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the display form of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "NONE"
	}
}

// ParseSeverity maps a level string to a Severity. Matching is
// case-insensitive over the fixed vocabulary DEBUG, INFO, WARN, ERROR,
// FATAL; anything else, including the empty string, is SeverityNone.
// Parsing is total: there is no error case.
func ParseSeverity(level string) Severity {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return SeverityDebug
	case "INFO":
		return SeverityInfo
	case "WARN":
		return SeverityWarning
	case "ERROR":
		return SeverityError
	case "FATAL":
		return SeverityFatal
	default:
		return SeverityNone
	}
}

// timestampLayout is the fixed, locale-independent rendering used in line
// text. Changing it is a breaking change for consumers.
const timestampLayout = "2006-01-02 15:04:05.000"

// Line is one formatted display line.
type Line struct {
	// Ordinal is copied from the source record and doubles as the line's
	// stable public index.
	Ordinal int

	// Text is the rendered display line.
	Text string

	Severity  Severity
	Timestamp time.Time
}

// Format renders a record into its display line.
//
// The composition "{timestamp} [{thread}] {logger} {level} {message}"
// (level is the raw stored string, not the parsed classification) and the
// UTC timestamp layout are a presentation contract and must stay
// byte-identical across runs for the same record.
func Format(rec logdb.Record) Line {
	sev := ParseSeverity(rec.Level)
	ts := rec.Timestamp()

	text := fmt.Sprintf("%s [%s] %s %s %s",
		ts.Format(timestampLayout),
		rec.Thread,
		rec.Logger,
		rec.Level,
		rec.Message,
	)

	return Line{
		Ordinal:   rec.Ordinal,
		Text:      text,
		Severity:  sev,
		Timestamp: ts,
	}
}
