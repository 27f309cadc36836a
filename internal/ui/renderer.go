// Package ui renders dbtail's terminal output.
package ui

import (
	"fmt"
	"io"

	"github.com/loghound/dbtail/internal/format"
)

// Renderer writes styled output, degrading to plain text when color is
// disabled (non-tty output, --no-color, NO_COLOR).
type Renderer struct {
	out   io.Writer
	color bool
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{out: out, color: color}
}

// Line writes one formatted log line, styled by severity.
func (r *Renderer) Line(line format.Line) {
	text := line.Text
	if r.color {
		if style, ok := severityStyles[line.Severity]; ok {
			text = style.Render(text)
		}
	}
	fmt.Fprintln(r.out, text)
}

// Status writes a transient status message.
func (r *Renderer) Status(msg string, args ...interface{}) {
	r.styled(StatusStyle, msg, args...)
}

// Success writes a completion message.
func (r *Renderer) Success(msg string, args ...interface{}) {
	r.styled(SuccessStyle, msg, args...)
}

// Error writes an error message.
func (r *Renderer) Error(msg string, args ...interface{}) {
	r.styled(ErrorStyle, msg, args...)
}

// Muted writes secondary detail.
func (r *Renderer) Muted(msg string, args ...interface{}) {
	r.styled(MutedStyle, msg, args...)
}

func (r *Renderer) styled(style interface{ Render(...string) string }, msg string, args ...interface{}) {
	text := fmt.Sprintf(msg, args...)
	if r.color {
		text = style.Render(text)
	}
	fmt.Fprintln(r.out, text)
}
