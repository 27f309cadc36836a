package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/loghound/dbtail/internal/format"
)

// Color palette - ANSI 256 colors for broad terminal support
var (
	ColorCyan   = lipgloss.Color("6")
	ColorYellow = lipgloss.Color("3")
	ColorRed    = lipgloss.Color("1")
	ColorGreen  = lipgloss.Color("2")
	ColorGray   = lipgloss.Color("8")
	ColorWhite  = lipgloss.Color("15")
)

var (
	// Timestamps in line output
	TimestampStyle = lipgloss.NewStyle().Foreground(ColorCyan)

	// Status messages ("Watching...", "Seeding...")
	StatusStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	// Error messages
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	// Success messages
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	// Muted/secondary text
	MutedStyle = lipgloss.NewStyle().Foreground(ColorGray)
)

// severityStyles maps each classification to its line style. Lines with
// no recognized severity render unstyled.
var severityStyles = map[format.Severity]lipgloss.Style{
	format.SeverityDebug:   lipgloss.NewStyle().Foreground(ColorGray),
	format.SeverityInfo:    lipgloss.NewStyle().Foreground(ColorWhite),
	format.SeverityWarning: lipgloss.NewStyle().Foreground(ColorYellow),
	format.SeverityError:   lipgloss.NewStyle().Foreground(ColorRed),
	format.SeverityFatal:   lipgloss.NewStyle().Foreground(ColorRed).Bold(true),
}
