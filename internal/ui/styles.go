package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")

	headerStyle = lipgloss.NewStyle().Bold(true)
	createStyle = lipgloss.NewStyle().Foreground(colorGreen)
	updateStyle = lipgloss.NewStyle().Foreground(colorYellow)
	deleteStyle = lipgloss.NewStyle().Foreground(colorRed)
	keyStyle    = lipgloss.NewStyle().Foreground(colorBlue)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)
