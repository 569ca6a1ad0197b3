// Package watch implements the talkrelay live watch TUI: a terminal
// dashboard fed by the ops server's health endpoint and SSE event stream.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes the watch TUI styling. One entry per delivery
// outcome keeps the table, the event stream, and the header consistent.
type Theme struct {
	// Delivery outcome colors
	StatusOK      lipgloss.Style
	StatusRunning lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusQueued  lipgloss.Style

	// Chrome
	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Activity indicators
	TickerActive   lipgloss.Style
	TickerInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	accent := lipgloss.Color("#00B4D8")
	ok := lipgloss.Color("#22C55E")

	return Theme{
		StatusOK:      lipgloss.NewStyle().Foreground(ok),
		StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		StatusQueued:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),

		TickerActive:   lipgloss.NewStyle().Foreground(ok),
		TickerInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#3F3F46")),
	}
}
