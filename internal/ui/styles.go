package ui

import "github.com/charmbracelet/lipgloss"

// palette bundles the styles of one color scheme. The d key swaps
// schemes at runtime, so styles live on the model instead of at
// package level.
type palette struct {
	title     lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	muted     lipgloss.Style
	help      lipgloss.Style
	errText   lipgloss.Style
	pane      lipgloss.Style
	searchBox lipgloss.Style
	spinner   lipgloss.Style
}

// newPalette returns the style set for the requested scheme. The dark
// variant leans on bright foregrounds for dark terminals, the light
// one on deep blues for light backgrounds.
func newPalette(dark bool) palette {
	// Color palette
	primary := lipgloss.Color("#005F87") // Deep blue
	value := lipgloss.Color("#1A1A1A")   // Near black
	danger := lipgloss.Color("#B00020")  // Red for errors
	if dark {
		primary = lipgloss.Color("#00BFFF") // Deep sky blue
		value = lipgloss.Color("#FFFFFF")
		danger = lipgloss.Color("#FF6B6B")
	}
	muted := lipgloss.Color("#6C757D")  // Gray
	border := lipgloss.Color("#4A90E2") // Border blue

	return palette{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),

		label: lipgloss.NewStyle().
			Foreground(muted).
			Bold(true),

		value: lipgloss.NewStyle().
			Foreground(value),

		muted: lipgloss.NewStyle().
			Foreground(muted),

		help: lipgloss.NewStyle().
			Foreground(muted).
			Padding(1, 0),

		errText: lipgloss.NewStyle().
			Foreground(danger).
			Bold(true),

		pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2),

		searchBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2).
			Width(52),

		spinner: lipgloss.NewStyle().
			Foreground(primary),
	}
}
