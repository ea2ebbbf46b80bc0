package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	White     = lipgloss.Color("#FFFFFF")

	// Heat ramp, empty day first
	HeatColors = []lipgloss.Color{
		lipgloss.Color("#2D333B"),
		lipgloss.Color("#0E4429"),
		lipgloss.Color("#006D32"),
		lipgloss.Color("#26A641"),
		lipgloss.Color("#39D353"),
	}

	// Base styles
	App = lipgloss.NewStyle().
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Grid
	AxisLabel = lipgloss.NewStyle().
			Foreground(Muted)

	Today = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	Count = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	// Status bar
	StatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(White).
			Padding(0, 1)

	// Help styles
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(Muted)

	InputLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)

// HeatCell returns the style of a day cell at a heat level
func HeatCell(level int) lipgloss.Style {
	if level < 0 {
		level = 0
	}
	if level >= len(HeatColors) {
		level = len(HeatColors) - 1
	}
	return lipgloss.NewStyle().Foreground(HeatColors[level])
}
