package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// ErrorOverlay shows an error in a centered box until dismissed
type ErrorOverlay struct {
	Width   int
	Theme   theme.Theme
	title   string
	message string
}

// NewErrorOverlay creates an error overlay
func NewErrorOverlay(th theme.Theme) *ErrorOverlay {
	return &ErrorOverlay{Width: 60, Theme: th}
}

// SetError sets the title and message to show
func (e *ErrorOverlay) SetError(title, message string) {
	e.title = title
	e.message = message
}

// View renders the overlay
func (e *ErrorOverlay) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(e.Theme.Error)
	hintStyle := lipgloss.NewStyle().
		Faint(true)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("✗ "+e.title),
		"",
		lipgloss.NewStyle().Width(e.Width-4).Render(e.message),
		"",
		hintStyle.Render("Press Esc or Enter to dismiss"),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(e.Theme.Error).
		Padding(1, 2).
		Width(e.Width).
		Render(content)
}
