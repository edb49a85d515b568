package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1)
	activeTabStyle = tabStyle.Bold(true).Reverse(true)
	selectedStyle  = lipgloss.NewStyle().Bold(true)
	doneStyle      = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	mutedStyle     = lipgloss.NewStyle().Faint(true)
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	formStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "[x]"
	boxUnchecked = "[ ]"
)
