package tui

import "github.com/charmbracelet/lipgloss"

// Batch row statuses.
const (
	StatusPending   = "pending"
	StatusWorking   = "committing"
	StatusCommitted = "committed"
	StatusPartial   = "partial"
	StatusSkipped   = "skipped"
	StatusConflict  = "conflict"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

// summaryOrder is the order of the footer tally.
var summaryOrder = []string{
	StatusCommitted, StatusPartial, StatusSkipped, StatusEmpty, StatusConflict, StatusFailed,
}

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
	TitleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	blue   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faint  = lipgloss.NewStyle().Faint(true)

	// Batch statuses and item statuses share one palette.
	statusStyles = map[string]lipgloss.Style{
		StatusCommitted: green,
		"done":          green,
		StatusWorking:   blue,
		"playing":       blue.Bold(true),
		StatusPartial:   yellow,
		StatusSkipped:   yellow,
		StatusConflict:  yellow,
		StatusFailed:    red,
		StatusPending:   faint,
		StatusEmpty:     faint,
		"scheduled":     faint,
	}
)

// StatusStyle returns the colour for a batch or item status.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// Finished reports whether a batch row has reached a final status.
func Finished(status string) bool {
	switch status {
	case StatusCommitted, StatusPartial, StatusSkipped, StatusConflict, StatusEmpty, StatusFailed:
		return true
	}
	return false
}
