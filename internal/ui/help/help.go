package help

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of key bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// GetGlobalKeys returns global key bindings
func GetGlobalKeys() []KeyBinding {
	return []KeyBinding{
		{"?", "Toggle help"},
		{"q, Ctrl+C", "Quit application"},
		{"Esc/Enter", "Dismiss error"},
		{"r, F5", "Refetch records"},
		{"f", "Edit filter"},
		{"s", "Edit sorts"},
		{"v", "Saved views"},
		{"E", "Export to CSV"},
		{"J", "Export to JSON"},
	}
}

// GetTableKeys returns table navigation key bindings
func GetTableKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k", "Move up"},
		{"↓/j", "Move down"},
		{"←/h", "Scroll columns left"},
		{"→/l", "Scroll columns right"},
		{"PgUp/PgDn", "Page up / down"},
		{"g / G", "First / last record"},
		{"Enter", "Show record details"},
	}
}

// GetFilterKeys returns filter editor key bindings
func GetFilterKeys() []KeyBinding {
	return []KeyBinding{
		{"a", "Add condition"},
		{"g", "Add group"},
		{"d, x", "Delete filter"},
		{"p / P", "Next / previous property"},
		{"o / O", "Next / previous operator"},
		{"e, Enter", "Edit value"},
		{"v, Space", "Cycle value"},
		{"c", "Switch and / or"},
		{"n, !", "Negate group"},
		{"X", "Clear all filters"},
		{"y", "Copy filter JSON"},
		{"Esc", "Apply and close"},
	}
}

// GetSortKeys returns sort editor key bindings
func GetSortKeys() []KeyBinding {
	return []KeyBinding{
		{"a", "Add sort"},
		{"d, x", "Remove sort"},
		{"Enter, Space", "Toggle direction"},
		{"K / J", "Move up / down"},
		{"Esc", "Apply and close"},
	}
}

// GetViewsKeys returns saved views key bindings
func GetViewsKeys() []KeyBinding {
	return []KeyBinding{
		{"Enter", "Apply view"},
		{"a", "Save current filter and sorts"},
		{"d", "Delete view"},
		{"/", "Search"},
	}
}

// Sections returns every help section in display order
func Sections() []Section {
	return []Section{
		{"Global", GetGlobalKeys()},
		{"Table", GetTableKeys()},
		{"Filter Editor", GetFilterKeys()},
		{"Sort Editor", GetSortKeys()},
		{"Saved Views", GetViewsKeys()},
	}
}

// Render creates the help view
func Render(width, height int, th theme.Theme) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("lazynotion - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, section := range Sections() {
		b.WriteString(sectionStyle.Render(section.Title))
		b.WriteString("\n")
		for _, kb := range section.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(max(width-4, 20)).
		Height(max(height-4, 5))

	return boxStyle.Render(b.String())
}
