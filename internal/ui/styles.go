package ui

import "github.com/charmbracelet/lipgloss"

// Lime accent palette (256-color codes).
const (
	ColorLime     = "154" // Primary accent
	ColorLimeDim  = "106" // Inactive stages, borders
	ColorWhite    = "255"
	ColorGray     = "245" // Labels
	ColorDarkGray = "238" // Separators
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Stage    lipgloss.Style
	Active   lipgloss.Style
	Progress lipgloss.Style

	// Search results
	Title     lipgloss.Style
	Score     lipgloss.Style
	Highlight lipgloss.Style

	Border lipgloss.Style
	Panel  lipgloss.Style
	Speed  lipgloss.Style
	Label  lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Stage:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),

		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Score:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Speed: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle(),
		Success:   lipgloss.NewStyle(),
		Warning:   lipgloss.NewStyle(),
		Error:     lipgloss.NewStyle(),
		Dim:       lipgloss.NewStyle(),
		Stage:     lipgloss.NewStyle(),
		Active:    lipgloss.NewStyle(),
		Progress:  lipgloss.NewStyle(),
		Title:     lipgloss.NewStyle(),
		Score:     lipgloss.NewStyle(),
		Highlight: lipgloss.NewStyle(),
		Border:    lipgloss.NewStyle(),
		Panel:     lipgloss.NewStyle(),
		Speed:     lipgloss.NewStyle(),
		Label:     lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
