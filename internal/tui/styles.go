package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("255")
	colorDim     = lipgloss.Color("240")
	colorAccent  = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorError   = lipgloss.Color("196")
	colorWarning = lipgloss.Color("214")
)

var (
	styleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleDimmed    = lipgloss.NewStyle().Foreground(colorDim)
	styleUser      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleAssistant = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	styleError     = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	styleWarning   = lipgloss.NewStyle().Foreground(colorWarning)
	styleSQL       = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorAccent).
			PaddingLeft(1)
	stylePrompt    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleStatusBar = lipgloss.NewStyle().Foreground(colorDim)
	styleTableHead = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	styleTableCell = lipgloss.NewStyle().Foreground(colorPrimary).Padding(0, 1)
)
