package styles

import (
	"github.com/allbin/go-serial-async/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Traffic area
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	TimestampStyle = lipgloss.NewStyle().Foreground(colors.Subtext0)
	RXStyle        = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true)
	NoteStyle      = lipgloss.NewStyle().Foreground(colors.Overlay0).Italic(true)

	// Input line
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	HintStyle = lipgloss.NewStyle().Foreground(colors.Overlay0)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(colors.Text).
			Background(colors.Surface0)

	PortStyle = lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true).
			Padding(0, 1)

	DividerStyle = lipgloss.NewStyle().
			Foreground(colors.Surface2).
			Padding(0, 1)

	DetailStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)
)

// ModeStyle renders the vim-like mode badge.
func ModeStyle(insert bool) lipgloss.Style {
	bg := colors.Blue
	if insert {
		bg = colors.Green
	}
	return lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(bg).
		Bold(true).
		Padding(0, 1)
}

// Indicator colors a one character state marker.
func Indicator(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
