package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jmcleod/eventdesk/model"
)

// Styles contains lipgloss styles for the views.
type Styles struct {
	Brand     lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	NavLink   lipgloss.Style
	NavActive lipgloss.Style
	Card      lipgloss.Style
	Category  lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
	Stat      lipgloss.Style

	Badges map[model.Badge]lipgloss.Style

	BarLow  lipgloss.Style
	BarMid  lipgloss.Style
	BarHigh lipgloss.Style
}

// DefaultStyles returns the default styles bound to r, so colour output
// follows the capabilities of the writer r was created for.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	badge := r.NewStyle().Bold(true).Padding(0, 1)
	return Styles{
		Brand: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Subtitle: r.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		NavLink: r.NewStyle().
			Foreground(lipgloss.Color("250")),
		NavActive: r.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Card: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Category: r.NewStyle().
			Foreground(lipgloss.Color("86")),
		Muted: r.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Hint: r.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244")),
		Stat: r.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 2),
		Badges: map[model.Badge]lipgloss.Style{
			model.BadgeFull:       badge.Foreground(lipgloss.Color("196")),
			model.BadgeAlmostFull: badge.Foreground(lipgloss.Color("214")),
			model.BadgeComingSoon: badge.Foreground(lipgloss.Color("39")),
			model.BadgePast:       badge.Foreground(lipgloss.Color("245")),
		},
		BarLow:  r.NewStyle().Foreground(lipgloss.Color("46")),  // Green
		BarMid:  r.NewStyle().Foreground(lipgloss.Color("214")), // Orange
		BarHigh: r.NewStyle().Foreground(lipgloss.Color("196")), // Red
	}
}
