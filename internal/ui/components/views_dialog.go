package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/store"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
	"github.com/rebeliceyang/lazynotion/internal/views"
)

// ViewsMode represents the dialog mode
type ViewsMode int

const (
	ViewsModeList ViewsMode = iota
	ViewsModeSearch
	ViewsModeSave
)

// ApplyViewMsg is sent after a view's filters and sorts were restored into
// the store
type ApplyViewMsg struct {
	View views.View
}

// CloseViewsDialogMsg is sent when dialog should close
type CloseViewsDialogMsg struct{}

// ViewsDialog lists, applies, saves and deletes saved views
type ViewsDialog struct {
	Width  int
	Height int
	Theme  theme.Theme

	manager  *views.Manager
	store    *store.Store
	database string

	// State
	mode     ViewsMode
	views    []views.View
	selected int
	offset   int
	err      string

	search      *SearchInput
	nameInput   textinput.Model
	descInput   textinput.Model
	activeField int // 0=name, 1=description
}

// NewViewsDialog creates a views dialog for database
func NewViewsDialog(m *views.Manager, s *store.Store, database string, th theme.Theme) *ViewsDialog {
	name := textinput.New()
	name.Placeholder = "Name"
	name.CharLimit = 80
	desc := textinput.New()
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 200

	vd := &ViewsDialog{
		Width:     80,
		Height:    30,
		Theme:     th,
		manager:   m,
		store:     s,
		database:  database,
		mode:      ViewsModeList,
		search:    NewSearchInput(th, "Search views..."),
		nameInput: name,
		descInput: desc,
	}
	vd.Reload()
	return vd
}

// Reload refreshes the list from the manager, applying the search query
func (vd *ViewsDialog) Reload() {
	query := strings.ToLower(vd.search.Value())
	vd.views = vd.views[:0]
	for _, v := range vd.manager.Search(query) {
		if v.Database == "" || v.Database == vd.database {
			vd.views = append(vd.views, v)
		}
	}
	if vd.selected >= len(vd.views) {
		vd.selected = max(len(vd.views)-1, 0)
	}
	if vd.offset > vd.selected {
		vd.offset = vd.selected
	}
}

// Update handles keyboard input
func (vd *ViewsDialog) Update(msg tea.KeyMsg) (*ViewsDialog, tea.Cmd) {
	switch vd.mode {
	case ViewsModeSearch:
		return vd.handleSearchMode(msg)
	case ViewsModeSave:
		return vd.handleSaveMode(msg)
	default:
		return vd.handleListMode(msg)
	}
}

func (vd *ViewsDialog) handleListMode(msg tea.KeyMsg) (*ViewsDialog, tea.Cmd) {
	vd.err = ""
	switch msg.String() {
	case "esc", "q":
		return vd, func() tea.Msg {
			return CloseViewsDialogMsg{}
		}
	case "up", "k":
		if vd.selected > 0 {
			vd.selected--
			if vd.selected < vd.offset {
				vd.offset = vd.selected
			}
		}
	case "down", "j":
		if vd.selected < len(vd.views)-1 {
			vd.selected++
			visibleHeight := vd.visibleHeight()
			if vd.selected >= vd.offset+visibleHeight {
				vd.offset = vd.selected - visibleHeight + 1
			}
		}
	case "/":
		vd.mode = ViewsModeSearch
		return vd, vd.search.Focus()
	case "enter":
		if vd.selected < len(vd.views) {
			return vd, vd.apply(vd.views[vd.selected])
		}
	case "a", "n":
		vd.mode = ViewsModeSave
		vd.nameInput.SetValue("")
		vd.descInput.SetValue("")
		vd.activeField = 0
		vd.descInput.Blur()
		return vd, vd.nameInput.Focus()
	case "d", "x":
		if vd.selected < len(vd.views) {
			if err := vd.manager.Delete(vd.views[vd.selected].ID); err != nil {
				vd.err = err.Error()
			}
			vd.Reload()
		}
	}
	return vd, nil
}

// apply restores the view into the store before telling the app
func (vd *ViewsDialog) apply(v views.View) tea.Cmd {
	tree, err := v.Tree(filter.WithMaxDepth(vd.store.State().Filters.MaxDepth()))
	if err != nil {
		vd.err = err.Error()
		return nil
	}
	vd.store.SetFilters(tree)
	vd.store.SetSorts(v.Sorts)
	if err := vd.manager.RecordUsage(v.ID); err != nil {
		vd.err = err.Error()
	}
	return func() tea.Msg {
		return ApplyViewMsg{View: v}
	}
}

func (vd *ViewsDialog) handleSearchMode(msg tea.KeyMsg) (*ViewsDialog, tea.Cmd) {
	switch msg.String() {
	case "esc":
		vd.search.Reset()
		vd.search.Blur()
		vd.mode = ViewsModeList
		vd.Reload()
		return vd, nil
	case "enter":
		vd.search.Blur()
		vd.mode = ViewsModeList
		return vd, nil
	}

	var cmd tea.Cmd
	vd.search, cmd = vd.search.Update(msg)
	vd.selected = 0
	vd.offset = 0
	vd.Reload()
	return vd, cmd
}

func (vd *ViewsDialog) handleSaveMode(msg tea.KeyMsg) (*ViewsDialog, tea.Cmd) {
	switch msg.String() {
	case "esc":
		vd.mode = ViewsModeList
		vd.err = ""
		return vd, nil
	case "tab", "shift+tab":
		vd.activeField = 1 - vd.activeField
		if vd.activeField == 0 {
			vd.descInput.Blur()
			return vd, vd.nameInput.Focus()
		}
		vd.nameInput.Blur()
		return vd, vd.descInput.Focus()
	case "enter":
		st := vd.store.State()
		if _, err := vd.manager.Add(vd.nameInput.Value(), vd.descInput.Value(), vd.database, st.Filters, st.Sorts); err != nil {
			vd.err = err.Error()
			return vd, nil
		}
		vd.err = ""
		vd.mode = ViewsModeList
		vd.Reload()
		vd.selected = max(len(vd.views)-1, 0)
		return vd, nil
	}

	var cmd tea.Cmd
	if vd.activeField == 0 {
		vd.nameInput, cmd = vd.nameInput.Update(msg)
	} else {
		vd.descInput, cmd = vd.descInput.Update(msg)
	}
	return vd, cmd
}

func (vd *ViewsDialog) visibleHeight() int {
	return max((vd.Height-12)/2, 1)
}

// View renders the dialog
func (vd *ViewsDialog) View() string {
	if vd.mode == ViewsModeSave {
		return vd.renderSave()
	}
	return vd.renderList()
}

func (vd *ViewsDialog) title(text string) string {
	return lipgloss.NewStyle().
		Foreground(vd.Theme.Foreground).
		Background(vd.Theme.Info).
		Padding(0, 1).
		Bold(true).
		Render(text)
}

func (vd *ViewsDialog) container(sections []string) string {
	if vd.err != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(vd.Theme.Error).Padding(0, 1).Render("Error: "+vd.err))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(vd.Theme.Border).
		Width(vd.Width).
		Height(vd.Height).
		Padding(1).
		Render(strings.Join(sections, "\n"))
}

func (vd *ViewsDialog) renderList() string {
	var sections []string
	sections = append(sections, vd.title("Saved Views"))

	instrStyle := lipgloss.NewStyle().
		Foreground(vd.Theme.Muted).
		Padding(0, 1)
	sections = append(sections, instrStyle.Render("↑↓: Navigate  Enter: Apply  a: Save current  d: Delete  /: Search  Esc: Close"))

	vd.search.Width = vd.Width - 4
	if vd.mode == ViewsModeSearch || vd.search.Value() != "" {
		sections = append(sections, vd.search.View())
	}

	if len(vd.views) == 0 {
		sections = append(sections, "\nNo saved views. Press 'a' to save the current filter and sorts.")
		return vd.container(sections)
	}

	sections = append(sections, "")
	visibleEnd := min(vd.offset+vd.visibleHeight(), len(vd.views))
	for i := vd.offset; i < visibleEnd; i++ {
		v := vd.views[i]

		name := v.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		desc := v.Description
		if len(desc) > 50 {
			desc = desc[:47] + "..."
		}

		conditions := 0
		for _, f := range v.Filters {
			if f.Property != "" {
				conditions++
			}
		}
		line := fmt.Sprintf("%s\n  %s [%d filters, %d sorts, used %d×]", name, desc, conditions, len(v.Sorts), v.UsageCount)

		style := lipgloss.NewStyle().Padding(0, 1)
		if i == vd.selected {
			style = style.Background(vd.Theme.Selection).Foreground(vd.Theme.Foreground)
		}
		sections = append(sections, style.Render(line))
	}

	return vd.container(sections)
}

func (vd *ViewsDialog) renderSave() string {
	var sections []string
	sections = append(sections, vd.title("Save View"))
	sections = append(sections, lipgloss.NewStyle().
		Foreground(vd.Theme.Muted).
		Padding(0, 1).
		Render("Tab: Next field  Enter: Save  Esc: Cancel"))

	st := vd.store.State()
	summary := fmt.Sprintf("Saves %d filters and %d sorts", st.Filters.BaseFilterCount(), len(st.Sorts))
	sections = append(sections, "", lipgloss.NewStyle().Padding(0, 1).Render(summary), "")
	sections = append(sections, vd.renderField("Name:", vd.nameInput.View(), vd.activeField == 0))
	sections = append(sections, vd.renderField("Description:", vd.descInput.View(), vd.activeField == 1))

	return vd.container(sections)
}

func (vd *ViewsDialog) renderField(label, value string, active bool) string {
	style := lipgloss.NewStyle().Padding(0, 1)
	if active {
		style = style.Background(vd.Theme.Selection).Foreground(vd.Theme.Foreground)
	}
	return style.Render(fmt.Sprintf("%-13s %s", label, value))
}
