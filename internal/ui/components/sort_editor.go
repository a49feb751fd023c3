package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/store"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// CloseSortEditorMsg is sent when the sort editor closes. Closing commits
// the sorts, so the app fetches.
type CloseSortEditorMsg struct{}

// SortEditor edits the ordered sort list held by the store
type SortEditor struct {
	Width  int
	Height int
	Theme  theme.Theme

	store  *store.Store
	cursor int

	// picking is true while choosing a property to add
	picking    bool
	candidates []string
	pickIndex  int

	actionErr string
}

// NewSortEditor creates a sort editor over s
func NewSortEditor(s *store.Store, th theme.Theme) *SortEditor {
	return &SortEditor{
		Width:  60,
		Height: 20,
		Theme:  th,
		store:  s,
	}
}

// Update handles keyboard input
func (se *SortEditor) Update(msg tea.KeyMsg) (*SortEditor, tea.Cmd) {
	se.actionErr = ""
	if se.picking {
		return se.handlePickMode(msg)
	}

	sorts := se.store.State().Sorts
	switch msg.String() {
	case "esc", "q", "s":
		return se, func() tea.Msg {
			return CloseSortEditorMsg{}
		}
	case "up", "k":
		if se.cursor > 0 {
			se.cursor--
		}
	case "down", "j":
		if se.cursor < len(sorts)-1 {
			se.cursor++
		}
	case "a":
		se.startPicking(sorts)
	case "d", "x":
		if err := se.store.RemoveSort(se.cursor); err == nil && se.cursor > 0 && se.cursor >= len(sorts)-1 {
			se.cursor--
		}
	case "enter", " ":
		se.setErr(se.store.ToggleSortDirection(se.cursor))
	case "K", "shift+up":
		if se.cursor > 0 && se.store.MoveSort(se.cursor, se.cursor-1) == nil {
			se.cursor--
		}
	case "J", "shift+down":
		if se.cursor < len(sorts)-1 && se.store.MoveSort(se.cursor, se.cursor+1) == nil {
			se.cursor++
		}
	}
	return se, nil
}

func (se *SortEditor) setErr(err error) {
	if err != nil {
		se.actionErr = err.Error()
	}
}

func (se *SortEditor) startPicking(sorts []models.SortEntry) {
	se.candidates = se.candidates[:0]
	for _, name := range se.store.State().Schema.Names() {
		if !models.HasSort(sorts, name) {
			se.candidates = append(se.candidates, name)
		}
	}
	if len(se.candidates) == 0 {
		se.actionErr = "Every property is already sorted"
		return
	}
	se.pickIndex = 0
	se.picking = true
}

func (se *SortEditor) handlePickMode(msg tea.KeyMsg) (*SortEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		se.picking = false
	case "up", "k":
		if se.pickIndex > 0 {
			se.pickIndex--
		}
	case "down", "j":
		if se.pickIndex < len(se.candidates)-1 {
			se.pickIndex++
		}
	case "enter":
		if err := se.store.AddSort(se.candidates[se.pickIndex]); err != nil {
			se.setErr(err)
		} else {
			se.cursor = len(se.store.State().Sorts) - 1
		}
		se.picking = false
	}
	return se, nil
}

// View renders the sort editor
func (se *SortEditor) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(se.Theme.Foreground).
		Background(se.Theme.Info).
		Padding(0, 1).
		Bold(true)
	sections = append(sections, titleStyle.Render("Sort"))

	instructions := "a=Add d=Delete Enter=Direction K/J=Move Esc=Apply"
	if se.picking {
		instructions = "↑↓ Select property, Enter to add, Esc to go back"
	}
	sections = append(sections, lipgloss.NewStyle().Foreground(se.Theme.Muted).Padding(0, 1).Render(instructions), "")

	if se.picking {
		for i, name := range se.candidates {
			style := lipgloss.NewStyle().Padding(0, 1)
			if i == se.pickIndex {
				style = style.Background(se.Theme.Selection).Foreground(se.Theme.Foreground)
			}
			sections = append(sections, style.Render("  "+name))
		}
	} else {
		sorts := se.store.State().Sorts
		if len(sorts) == 0 {
			sections = append(sections, lipgloss.NewStyle().Foreground(se.Theme.Muted).Padding(0, 1).Render("No sorts. Press 'a' to add one."))
		}
		for i, s := range sorts {
			dir := "↑ Ascending"
			if s.Direction == models.Descending {
				dir = "↓ Descending"
			}
			line := fmt.Sprintf("%d. %s  %s", i+1,
				lipgloss.NewStyle().Foreground(se.Theme.Property).Render(s.Property),
				lipgloss.NewStyle().Foreground(se.Theme.Operator).Render(dir))
			style := lipgloss.NewStyle().Padding(0, 1)
			if i == se.cursor {
				style = style.Background(se.Theme.Selection).Foreground(se.Theme.Foreground)
			}
			sections = append(sections, style.Render(line))
		}
	}

	if se.actionErr != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(se.Theme.Error).Padding(0, 1).Render("Error: "+se.actionErr))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(se.Theme.BorderFocused).
		Width(se.Width).
		Height(se.Height).
		Padding(1).
		Render(strings.Join(sections, "\n"))
}
