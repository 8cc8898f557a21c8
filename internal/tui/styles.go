package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#4F9DDE")
	okGreen   = lipgloss.Color("#A8E6CF")
	errorRed  = lipgloss.Color("#FF8A80")
	mutedGray = lipgloss.Color("#6B7280")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Width(8)

	focusedLabelStyle = labelStyle.
				Foreground(accent).
				Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(okGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)
