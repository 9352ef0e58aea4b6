package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is the per-theme style set; rebuilt when the theme changes.
type styles struct {
	panel    lipgloss.Style
	title    lipgloss.Style
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	playing  lipgloss.Style
	paused   lipgloss.Style
	keyHint  lipgloss.Style
	graph    lipgloss.Style
	ramp     []lipgloss.Style
	contours []lipgloss.Style
}

// rampLevels is the number of distinct canvas intensities.
const rampLevels = 6

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		header:   lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		label:    lipgloss.NewStyle().Foreground(t.Muted),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		playing:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		keyHint:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		graph:    lipgloss.NewStyle().Foreground(t.Secondary),
		ramp:     t.Ramp(rampLevels),
		contours: contourRamp(t),
	}
}

// contourRamp dims the loss contours under the path: levels 0-2 fade
// from Muted to Secondary, 3+ are the accent for the path and markers.
func contourRamp(t Theme) []lipgloss.Style {
	return []lipgloss.Style{
		lipgloss.NewStyle().Foreground(t.Muted),
		lipgloss.NewStyle().Foreground(blend(t.Muted, t.Secondary, 0.5)),
		lipgloss.NewStyle().Foreground(t.Secondary),
		lipgloss.NewStyle().Foreground(t.Primary),
		lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
	}
}

// slider renders the playback position as a bar of the given width.
func slider(pos, steps, width int, fill, rest lipgloss.Style) string {
	frac := 1.0
	if steps > 1 {
		frac = float64(pos-1) / float64(steps-1)
	}
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return fill.Render(strings.Repeat("█", filled)) + rest.Render(strings.Repeat("░", width-filled))
}

func blend(from, to lipgloss.Color, t float64) lipgloss.Color {
	sr, sg, sb := parseHex(string(from))
	er, eg, eb := parseHex(string(to))
	r := int(float64(sr) + t*float64(er-sr))
	g := int(float64(sg) + t*float64(eg-sg))
	b := int(float64(sb) + t*float64(eb-sb))
	return lipgloss.Color(hexColor(r, g, b))
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	return parseHexByte(hex[1:3]), parseHexByte(hex[3:5]), parseHexByte(hex[5:7])
}

func parseHexByte(s string) int {
	var val int
	for _, c := range s {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

func hexColor(r, g, b int) string {
	return "#" + hexByte(r) + hexByte(g) + hexByte(b)
}

func hexByte(v int) string {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	const hex = "0123456789abcdef"
	return string(hex[v/16]) + string(hex[v%16])
}
