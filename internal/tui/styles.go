package tui

import "github.com/charmbracelet/lipgloss"

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusCompleted = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	StyleStatusFailed = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	StyleSelected = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// statusStyle maps a status string to its display style.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "running":
		return StyleStatusRunning
	case "completed":
		return StyleStatusCompleted
	case "failed":
		return StyleStatusFailed
	}
	return StyleStatusPending
}
