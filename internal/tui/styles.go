package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy  = lipgloss.Color("#1B2A49")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGray  = lipgloss.Color("244")

	// series colors
	ColorFlops = lipgloss.Color("39")
	ColorLUTs  = lipgloss.Color("208")
	ColorFreq  = lipgloss.Color("76")
	ColorMark  = lipgloss.Color("196")
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Bold(true)

	flopsStyle = lipgloss.NewStyle().Foreground(ColorFlops)
	lutsStyle  = lipgloss.NewStyle().Foreground(ColorLUTs)
	freqStyle  = lipgloss.NewStyle().Foreground(ColorFreq)

	tickStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	markerStyle = lipgloss.NewStyle().Foreground(ColorMark).Bold(true)

	annotationStyle = lipgloss.NewStyle().Foreground(ColorWhite)
	statusStyle     = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)
)
