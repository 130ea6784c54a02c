package ui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorMauve  = lipgloss.Color("#cba6f7")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorBright = lipgloss.Color("#cdd6f4")
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorMauve).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Foreground(ColorBright).Padding(0, 1)
	styleNum    = styleCell.Align(lipgloss.Right)
	styleBar    = lipgloss.NewStyle().Foreground(ColorBlue).Padding(0, 1)
	styleFailed = lipgloss.NewStyle().Foreground(ColorRed).Padding(0, 1)
	styleBest   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen).Padding(0, 1)
	styleBorder = lipgloss.NewStyle().Foreground(ColorMuted)
	styleWarn   = lipgloss.NewStyle().Foreground(ColorYellow)
	styleOK     = lipgloss.NewStyle().Foreground(ColorGreen)
	styleErr    = lipgloss.NewStyle().Foreground(ColorRed)
)
