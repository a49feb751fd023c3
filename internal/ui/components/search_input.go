package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// SearchInput provides a search input box
type SearchInput struct {
	Input textinput.Model
	Theme theme.Theme
	Width int
}

// NewSearchInput creates a new search input
func NewSearchInput(th theme.Theme, placeholder string) *SearchInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40

	return &SearchInput{
		Input: ti,
		Theme: th,
		Width: 60,
	}
}

// Focus starts accepting keystrokes
func (s *SearchInput) Focus() tea.Cmd {
	return s.Input.Focus()
}

// Blur stops accepting keystrokes
func (s *SearchInput) Blur() {
	s.Input.Blur()
}

// Focused reports whether the input accepts keystrokes
func (s *SearchInput) Focused() bool {
	return s.Input.Focused()
}

// Value returns the current query
func (s *SearchInput) Value() string {
	return s.Input.Value()
}

// Reset clears the search input
func (s *SearchInput) Reset() {
	s.Input.SetValue("")
}

// Update handles messages
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	return s, cmd
}

// View renders the search input
func (s *SearchInput) View() string {
	s.Input.Width = max(s.Width-8, 20)

	border := s.Theme.Border
	if s.Input.Focused() {
		border = s.Theme.BorderFocused
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(s.Width)

	return boxStyle.Render("/ " + s.Input.View())
}
