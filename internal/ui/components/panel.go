package components

import (
	"github.com/charmbracelet/lipgloss"
)

// Panel is a bordered box with an optional title line
type Panel struct {
	Title       string
	Content     string
	Width       int
	Height      int
	BorderColor lipgloss.Color
}

// InnerSize returns the space left for content inside the border and title
func (p *Panel) InnerSize() (int, int) {
	h := p.Height
	if p.Title != "" {
		h--
	}
	return max(p.Width, 0), max(h, 0)
}

// View renders the panel
func (p *Panel) View() string {
	if p.Width <= 0 || p.Height <= 0 {
		return ""
	}

	style := lipgloss.NewStyle().
		Width(p.Width).
		Height(p.Height).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.BorderColor)

	content := p.Content
	if p.Title != "" {
		titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		content = titleStyle.Render(p.Title) + "\n" + content
	}

	return style.Render(content)
}
