package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/config"
	"github.com/rebeliceyang/lazynotion/internal/export"
	"github.com/rebeliceyang/lazynotion/internal/logger"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/store"
	"github.com/rebeliceyang/lazynotion/internal/ui/components"
	"github.com/rebeliceyang/lazynotion/internal/ui/help"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
	"github.com/rebeliceyang/lazynotion/internal/views"
)

// App is the main application model
type App struct {
	state  models.AppState
	config *config.Config
	theme  theme.Theme
	logger *slog.Logger

	store        *store.Store
	viewsManager *views.Manager

	tablePanel components.Panel
	tableView  *components.TableView

	filterEditor *components.FilterEditor
	sortEditor   *components.SortEditor
	viewsDialog  *components.ViewsDialog
	recordDetail *components.RecordDetail

	// Error overlay
	showError    bool
	errorOverlay *components.ErrorOverlay

	// status is a one-line notice in the bottom bar
	status string

	fetchTimeout time.Duration
	exportDir    string
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Title   string
	Message string
}

// FetchDoneMsg is sent when a fetch started by the app returns
type FetchDoneMsg struct {
	Err error
}

// StoreChangedMsg is sent when the part of the store the table renders from
// changed outside the update loop
type StoreChangedMsg struct{}

// New creates a new App over s. vm may be nil, which disables saved views.
func New(cfg *config.Config, s *store.Store, vm *views.Manager) *App {
	state := models.NewAppState()

	themeName := "default"
	if cfg != nil && cfg.UI.Theme != "" {
		themeName = cfg.UI.Theme
	}
	th := theme.GetTheme(themeName)

	fetchTimeout := 30 * time.Second
	if cfg != nil {
		state.DatabaseName = cfg.Notion.DatabaseID
		if cfg.Backend.Kind == config.BackendPostgres {
			state.DatabaseName = cfg.Backend.Table
		}
		if cfg.Notion.TimeoutMs > 0 {
			fetchTimeout = time.Duration(cfg.Notion.TimeoutMs) * time.Millisecond
		}
	}

	exportDir, err := os.Getwd()
	if err != nil {
		exportDir = os.TempDir()
	}

	app := &App{
		state:        state,
		config:       cfg,
		theme:        th,
		logger:       logger.Get(),
		store:        s,
		viewsManager: vm,
		tableView:    components.NewTableView(th),
		filterEditor: components.NewFilterEditor(s, th),
		sortEditor:   components.NewSortEditor(s, th),
		errorOverlay: components.NewErrorOverlay(th),
		tablePanel: components.Panel{
			Title:       "Records",
			BorderColor: th.BorderFocused,
		},
		fetchTimeout: fetchTimeout,
		exportDir:    exportDir,
	}

	app.updatePanelDimensions()
	app.syncTable()

	return app
}

// Watch forwards store changes made outside the update loop, such as a
// fetch finishing, to send. The returned function stops watching.
func (a *App) Watch(send func(tea.Msg)) func() {
	type watched struct {
		IsFetching bool
		Records    int
		LastError  string
	}
	return a.store.Subscribe(func(st store.State) any {
		return watched{IsFetching: st.IsFetching, Records: len(st.Records), LastError: st.LastError}
	}, func(any) {
		// subscribers may run inside Update, which must not block on Send
		go send(StoreChangedMsg{})
	})
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.fetch()
}

// fetch refetches records in the background. It returns nil while a fetch
// is running.
func (a *App) fetch() tea.Cmd {
	if a.store.State().IsFetching {
		return nil
	}
	timeout := a.fetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return FetchDoneMsg{Err: a.store.FetchData(ctx)}
	}
}

// syncTable copies records, schema and sorts from the store into the table
func (a *App) syncTable() {
	st := a.store.State()
	a.tableView.SetRecords(st.Schema, st.Records, st.Sorts)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ErrorMsg:
		a.ShowError(msg.Title, msg.Message)
		return a, nil

	case FetchDoneMsg:
		a.syncTable()
		switch {
		case msg.Err == nil, errors.Is(msg.Err, store.ErrFetchInFlight):
		case errors.Is(msg.Err, store.ErrInvalidFilter):
			a.ShowError("Invalid Filter", a.store.State().FilterError)
		default:
			a.ShowError("Fetch Failed", fmt.Sprintf("Could not load records\n\nError: %v", msg.Err))
		}
		return a, nil

	case StoreChangedMsg:
		a.syncTable()
		return a, nil

	case components.CloseFilterEditorMsg, components.CloseSortEditorMsg:
		return a, a.commit()

	case components.ApplyViewMsg:
		a.state.ViewMode = models.NormalMode
		a.status = fmt.Sprintf("Applied view '%s'", msg.View.Name)
		return a, a.fetch()

	case components.CloseViewsDialogMsg, components.CloseRecordDetailMsg:
		a.state.ViewMode = models.NormalMode
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.state.Width = msg.Width
		a.state.Height = msg.Height
		a.updatePanelDimensions()
	}
	return a, nil
}

// commit closes an editor and fetches with what it changed. Editors stay
// open while a fetch is running.
func (a *App) commit() tea.Cmd {
	if a.store.State().IsFetching {
		a.status = "Fetching… close again when it finishes"
		return nil
	}
	a.state.ViewMode = models.NormalMode
	a.syncTable()
	return a.fetch()
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle error overlay dismissal first if visible
	if a.showError {
		switch msg.String() {
		case "esc", "enter":
			a.DismissError()
		case "ctrl+c":
			return a, tea.Quit
		}
		// Consume all other keys when error is showing
		return a, nil
	}

	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	var cmd tea.Cmd
	switch a.state.ViewMode {
	case models.FilterMode:
		a.filterEditor, cmd = a.filterEditor.Update(msg)
		return a, cmd
	case models.SortMode:
		a.sortEditor, cmd = a.sortEditor.Update(msg)
		return a, cmd
	case models.ViewsMode:
		a.viewsDialog, cmd = a.viewsDialog.Update(msg)
		return a, cmd
	case models.DetailMode:
		a.recordDetail, cmd = a.recordDetail.Update(msg)
		return a, cmd
	case models.HelpMode:
		switch msg.String() {
		case "?", "esc", "q":
			a.state.ViewMode = models.NormalMode
		}
		return a, nil
	}

	a.status = ""
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "?":
		a.state.ViewMode = models.HelpMode
	case "r", "f5":
		return a, a.fetch()
	case "f":
		a.filterEditor.Refresh()
		a.state.ViewMode = models.FilterMode
	case "s":
		a.state.ViewMode = models.SortMode
	case "v":
		if a.viewsManager == nil {
			a.status = "Saved views are unavailable"
			return a, nil
		}
		a.viewsDialog = components.NewViewsDialog(a.viewsManager, a.store, a.state.DatabaseName, a.theme)
		a.state.ViewMode = models.ViewsMode
	case "enter":
		st := a.store.State()
		if row := a.tableView.SelectedRow; row < len(st.Records) {
			a.recordDetail = components.NewRecordDetail(st.Records[row], st.Schema, a.theme)
			a.state.ViewMode = models.DetailMode
		}
	case "E":
		a.exportTo("csv")
	case "J":
		a.exportTo("json")
	case "up", "k":
		a.tableView.MoveSelection(-1)
	case "down", "j":
		a.tableView.MoveSelection(1)
	case "left", "h":
		a.tableView.ScrollColumns(-1)
	case "right", "l":
		a.tableView.ScrollColumns(1)
	case "pgup", "ctrl+u":
		a.tableView.PageUp()
	case "pgdown", "ctrl+d":
		a.tableView.PageDown()
	case "g", "home":
		a.tableView.MoveSelection(-len(a.tableView.Rows))
	case "G", "end":
		a.tableView.MoveSelection(len(a.tableView.Rows))
	}
	return a, nil
}

// exportTo writes the current records to a timestamped file in the export
// directory
func (a *App) exportTo(format string) {
	st := a.store.State()

	name := a.state.DatabaseName
	if name == "" {
		name = "records"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, name)
	path := filepath.Join(a.exportDir, fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102-150405"), format))

	var err error
	if format == "csv" {
		err = export.ExportToCSV(st.Schema, st.Records, path)
	} else {
		err = export.ExportToJSON(st.Records, path)
	}
	if err != nil {
		a.logger.Error("export failed", "path", path, "error", err)
		a.ShowError("Export Failed", fmt.Sprintf("Could not write %s\n\nError: %v", path, err))
		return
	}
	a.logger.Info("exported records", "path", path, "records", len(st.Records))
	a.status = fmt.Sprintf("Exported %d records to %s", len(st.Records), path)
}

// View implements tea.Model
func (a *App) View() string {
	// If error overlay is showing, render it centered on top of everything
	if a.showError {
		return a.place(a.errorOverlay.View())
	}

	switch a.state.ViewMode {
	case models.HelpMode:
		return help.Render(a.state.Width, a.state.Height, a.theme)
	case models.FilterMode:
		a.filterEditor.Width = min(100, a.state.Width-4)
		a.filterEditor.Height = min(32, a.state.Height-4)
		return a.place(a.filterEditor.View())
	case models.SortMode:
		a.sortEditor.Width = min(60, a.state.Width-4)
		a.sortEditor.Height = min(20, a.state.Height-4)
		return a.place(a.sortEditor.View())
	case models.ViewsMode:
		a.viewsDialog.Width = min(80, a.state.Width-4)
		a.viewsDialog.Height = min(30, a.state.Height-4)
		return a.place(a.viewsDialog.View())
	case models.DetailMode:
		a.recordDetail.Width = min(90, a.state.Width-4)
		a.recordDetail.Height = min(36, a.state.Height-4)
		return a.place(a.recordDetail.View())
	}

	return a.renderNormalView()
}

func (a *App) place(content string) string {
	return lipgloss.Place(
		a.state.Width, a.state.Height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

// renderNormalView renders the table with its top and bottom bars
func (a *App) renderNormalView() string {
	st := a.store.State()

	topBarRight := a.state.DatabaseName
	if st.IsFetching {
		topBarRight = "⟳ Fetching… " + topBarRight
	}
	topBar := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.BorderFocused).
		Foreground(lipgloss.Color("230")).
		Padding(0, 2).
		Render(a.formatStatusBar("lazynotion", topBarRight))

	bottomBarLeft := fmt.Sprintf("[f] Filter (%d) | [s] Sort (%d) | [v] Views | [?] Help | [q] Quit",
		st.Filters.BaseFilterCount(), len(st.Sorts))
	bottomBarRight := fmt.Sprintf("%d records", len(st.Records))
	bottomStyle := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.Selection).
		Foreground(a.theme.Foreground).
		Padding(0, 2)
	switch {
	case st.LastError != "":
		bottomBarRight = "✗ " + st.LastError
		bottomStyle = bottomStyle.Foreground(a.theme.Error)
	case a.status != "":
		bottomBarRight = a.status
	}
	bottomBar := bottomStyle.Render(a.formatStatusBar(bottomBarLeft, bottomBarRight))

	w, h := a.tablePanel.InnerSize()
	a.tableView.SetSize(w, h)
	if !st.IsLoaded && st.IsFetching {
		a.tablePanel.Content = lipgloss.NewStyle().Foreground(a.theme.Muted).Render("Loading records…")
	} else {
		a.tablePanel.Content = a.tableView.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		topBar,
		a.tablePanel.View(),
		bottomBar,
	)
}

// updatePanelDimensions calculates the table panel size from the window
func (a *App) updatePanelDimensions() {
	if a.state.Width <= 0 || a.state.Height <= 0 {
		return
	}

	// Top bar, bottom bar and the panel border take four lines
	a.tablePanel.Height = max(a.state.Height-4, 5)
	a.tablePanel.Width = max(a.state.Width-2, 20)
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	// Account for padding (2 chars on each side = 4 total)
	availableWidth := max(a.state.Width-4, 0)

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	// If content is too wide, drop the left side first
	if leftLen+rightLen > availableWidth {
		if availableWidth > rightLen {
			return truncate(left, availableWidth-rightLen) + right
		}
		return truncate(right, availableWidth)
	}

	spacing := availableWidth - leftLen - rightLen
	return left + strings.Repeat(" ", spacing) + right
}

func truncate(s string, width int) string {
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// ShowError displays an error overlay with the given title and message
func (a *App) ShowError(title, message string) {
	a.errorOverlay.SetError(title, message)
	a.showError = true
}

// DismissError hides the error overlay
func (a *App) DismissError() {
	a.showError = false
}
