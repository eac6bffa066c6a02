package tui

import "github.com/charmbracelet/lipgloss"

// Lumis accent and the neutral greys shared by every screen.
var (
	accent = lipgloss.Color("45")
	muted  = lipgloss.Color("243")
	faint  = lipgloss.Color("239")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(muted)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(faint)

	// commitStyle renders commit ids on the welcome screen.
	commitStyle = lipgloss.NewStyle().
			Foreground(accent).
			Underline(true)

	userMsgStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("111"))

	assistantMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	// traceStyle lists the units an answer was built from.
	traceStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true).
			PaddingLeft(2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)
)
