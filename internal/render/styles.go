// Package render formats graphs, search results and notices for the
// terminal.
package render

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark terminal theme
const (
	ColorBg     = "#0d1117"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds the lipgloss styles used by the renderers.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	StatusOK      lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusWarning lipgloss.Style

	Header lipgloss.Style
	Cell   lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		StatusOK:      badge.Background(lipgloss.Color(ColorGreen)),
		StatusFailed:  badge.Background(lipgloss.Color(ColorRed)),
		StatusWarning: badge.Background(lipgloss.Color(ColorYellow)),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBorder)),
	}
}

// chip renders label on a background of the given hex color.
func chip(label, hex string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(hex)).
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Render(label)
}
