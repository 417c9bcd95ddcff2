package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.AdaptiveColor{Light: "#3b82f6", Dark: "#60a5fa"}
	Subtle  = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#6b7280"}
	Text    = lipgloss.AdaptiveColor{Light: "#1f2937", Dark: "#e5e7eb"}

	Info    = lipgloss.AdaptiveColor{Light: "#0ea5e9", Dark: "#38bdf8"}
	Success = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	Warning = lipgloss.AdaptiveColor{Light: "#d97706", Dark: "#fbbf24"}
	Error   = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}

	Background        = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#111827"}
	BackgroundElement = lipgloss.AdaptiveColor{Light: "#f3f4f6", Dark: "#1f2937"}
)

// BaseStyle is the starting point for most components.
func BaseStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(Background).
		Foreground(Text)
}

// Title renders section headings.
func Title() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
}

// Muted renders secondary text.
func Muted() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Subtle)
}

// DialogBox frames modal overlays.
func DialogBox() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(BackgroundElement).
		Foreground(Text).
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Primary)
}
