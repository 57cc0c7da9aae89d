package tui

import "github.com/charmbracelet/lipgloss"

var (
	cText    = lipgloss.Color("#E6E6E6")
	cMuted   = lipgloss.Color("#7A7F87")
	cBorder  = lipgloss.Color("#3A3F4B")
	cAccent  = lipgloss.Color("#7D56F4")
	cSuccess = lipgloss.Color("#2BB673")
	cError   = lipgloss.Color("#E5484D")

	appStyle    = lipgloss.NewStyle().Padding(1, 2)
	titleStyle  = lipgloss.NewStyle().Foreground(cText).Background(cAccent).Bold(true).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(cMuted)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(cBorder).Padding(0, 1)
	focusPanel  = panelStyle.BorderForeground(cAccent)
	headingText = lipgloss.NewStyle().Foreground(cText).Bold(true)

	tabStyle       = lipgloss.NewStyle().Foreground(cMuted).Padding(0, 2)
	activeTabStyle = lipgloss.NewStyle().Foreground(cText).Background(cAccent).Bold(true).Padding(0, 2)

	statusOK   = lipgloss.NewStyle().Foreground(cSuccess).Bold(true)
	statusBad  = lipgloss.NewStyle().Foreground(cError).Bold(true)
	statusIdle = lipgloss.NewStyle().Foreground(cMuted)

	noteSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#0B0B0B")).Background(cSuccess).Padding(0, 1)
	noteError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(cError).Padding(0, 1)

	hotkeyStyle    = lipgloss.NewStyle().Foreground(cMuted)
	hotkeyKeyStyle = lipgloss.NewStyle().Foreground(cAccent).Bold(true)
)
