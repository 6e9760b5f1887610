package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha colors used by the dashboard
var (
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Text     = lipgloss.Color("#cdd6f4")
	Blue     = lipgloss.Color("#89b4fa")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Mauve    = lipgloss.Color("#cba6f7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	LineStyle = lipgloss.NewStyle().
			Foreground(Blue).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Subtext0).
			Width(4)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Text)

	DropStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	PausedStyle = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text)

	BorderColor = Surface1
)

// LevelStyle colors a line or LED state
func LevelStyle(on bool) lipgloss.Style {
	if on {
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(Overlay0)
}

// Gauge renders a fill bar of width cells for used out of total. The bar
// turns yellow above three quarters and red when full.
func Gauge(width, used, total int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = used * width / total
		if used > 0 && filled == 0 {
			filled = 1
		}
	}
	if filled > width {
		filled = width
	}

	color := Green
	switch {
	case total > 0 && used >= total:
		color = Red
	case total > 0 && used*4 > total*3:
		color = Peach
	}

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(Surface1).Render(strings.Repeat("░", width-filled))
	return bar + rest
}
