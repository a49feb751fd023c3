package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 40
)

// TableView displays records with virtual scrolling
type TableView struct {
	Columns []string
	Rows    [][]string
	Width   int
	Height  int
	Theme   theme.Theme

	// Virtual scrolling state
	TopRow      int
	VisibleRows int
	SelectedRow int

	// First column shown, for horizontal scrolling
	LeftColumn int

	// Column widths (calculated)
	ColumnWidths []int

	sorts []models.SortEntry
}

// NewTableView creates a new table view
func NewTableView(th theme.Theme) *TableView {
	return &TableView{
		Columns:      []string{},
		Rows:         [][]string{},
		ColumnWidths: []int{},
		Theme:        th,
	}
}

// SetRecords shows records with one column per schema property. Sorted
// columns are marked in the header.
func (tv *TableView) SetRecords(schema models.Schema, records []models.Record, sorts []models.SortEntry) {
	tv.Columns = schema.Names()
	tv.Rows = make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(schema))
		for j, prop := range schema {
			row[j] = r.Properties[prop.Name].Display()
		}
		tv.Rows[i] = row
	}
	tv.sorts = sorts

	if tv.SelectedRow >= len(tv.Rows) {
		tv.SelectedRow = max(len(tv.Rows)-1, 0)
	}
	if tv.TopRow > tv.SelectedRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.LeftColumn >= len(tv.Columns) {
		tv.LeftColumn = 0
	}
	tv.calculateColumnWidths()
}

// SetSize sets the rendered size
func (tv *TableView) SetSize(width, height int) {
	tv.Width = width
	tv.Height = height
	// Header + separator + status
	tv.VisibleRows = max(height-3, 1)
}

// calculateColumnWidths calculates optimal column widths
func (tv *TableView) calculateColumnWidths() {
	tv.ColumnWidths = make([]int, len(tv.Columns))

	for i, col := range tv.Columns {
		tv.ColumnWidths[i] = runewidth.StringWidth(tv.headerLabel(col))
	}

	for _, row := range tv.Rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > tv.ColumnWidths[i] {
				tv.ColumnWidths[i] = w
			}
		}
	}

	for i := range tv.ColumnWidths {
		tv.ColumnWidths[i] = min(max(tv.ColumnWidths[i], minColumnWidth), maxColumnWidth)
	}
}

// headerLabel adds the sort arrow and, with several sorts, the priority
func (tv *TableView) headerLabel(col string) string {
	for i, s := range tv.sorts {
		if s.Property != col {
			continue
		}
		arrow := "↑"
		if s.Direction == models.Descending {
			arrow = "↓"
		}
		if len(tv.sorts) > 1 {
			return fmt.Sprintf("%s %s%d", col, arrow, i+1)
		}
		return col + " " + arrow
	}
	return col
}

// View renders the table
func (tv *TableView) View() string {
	if len(tv.Columns) == 0 {
		return lipgloss.NewStyle().Foreground(tv.Theme.Muted).Render("No records")
	}

	var b strings.Builder

	b.WriteString(tv.renderHeader())
	b.WriteString("\n")
	b.WriteString(tv.renderSeparator())
	b.WriteString("\n")

	endRow := min(tv.TopRow+tv.VisibleRows, len(tv.Rows))
	for i := tv.TopRow; i < endRow; i++ {
		b.WriteString(tv.renderRow(i))
		b.WriteString("\n")
	}
	for i := endRow - tv.TopRow; i < tv.VisibleRows; i++ {
		b.WriteString("\n")
	}

	b.WriteString(tv.renderStatus())

	return lipgloss.NewStyle().MaxWidth(tv.Width).Render(b.String())
}

// visibleColumns returns the column range that fits the width
func (tv *TableView) visibleColumns() (int, int) {
	used := 1
	end := tv.LeftColumn
	for end < len(tv.Columns) {
		w := tv.ColumnWidths[end] + 3
		if end > tv.LeftColumn && used+w > tv.Width {
			break
		}
		used += w
		end++
	}
	return tv.LeftColumn, end
}

func (tv *TableView) renderHeader() string {
	start, end := tv.visibleColumns()
	var parts []string
	for i := start; i < end; i++ {
		parts = append(parts, tv.pad(tv.headerLabel(tv.Columns[i]), tv.ColumnWidths[i]))
	}
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(tv.Theme.TableHeader)
	return headerStyle.Render(" " + strings.Join(parts, " │ ") + " ")
}

func (tv *TableView) renderSeparator() string {
	start, end := tv.visibleColumns()
	var parts []string
	for i := start; i < end; i++ {
		parts = append(parts, strings.Repeat("─", tv.ColumnWidths[i]))
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Border).
		Render("─" + strings.Join(parts, "─┼─") + "─")
}

func (tv *TableView) renderRow(index int) string {
	start, end := tv.visibleColumns()
	row := tv.Rows[index]
	var parts []string
	for i := start; i < end; i++ {
		parts = append(parts, tv.pad(row[i], tv.ColumnWidths[i]))
	}

	line := " " + strings.Join(parts, " │ ") + " "

	if index == tv.SelectedRow {
		return lipgloss.NewStyle().
			Background(tv.Theme.TableRowSelected).
			Foreground(lipgloss.Color("15")).
			Bold(true).
			Render(line)
	}
	return line
}

func (tv *TableView) renderStatus() string {
	var showing string
	if len(tv.Rows) == 0 {
		showing = " 0 records"
	} else {
		endRow := min(tv.TopRow+tv.VisibleRows, len(tv.Rows))
		showing = fmt.Sprintf(" %d-%d of %d records", tv.TopRow+1, endRow, len(tv.Rows))
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Muted).
		Italic(true).
		Render(showing)
}

func (tv *TableView) pad(s string, width int) string {
	// cells are single line
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// MoveSelection moves the selection up or down
func (tv *TableView) MoveSelection(delta int) {
	if len(tv.Rows) == 0 {
		return
	}
	tv.SelectedRow = min(max(tv.SelectedRow+delta, 0), len(tv.Rows)-1)

	// Adjust visible window if needed
	if tv.SelectedRow < tv.TopRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.SelectedRow >= tv.TopRow+tv.VisibleRows {
		tv.TopRow = tv.SelectedRow - tv.VisibleRows + 1
	}
}

// PageUp moves the selection one page up
func (tv *TableView) PageUp() {
	tv.MoveSelection(-tv.VisibleRows)
}

// PageDown moves the selection one page down
func (tv *TableView) PageDown() {
	tv.MoveSelection(tv.VisibleRows)
}

// ScrollColumns shifts the first visible column
func (tv *TableView) ScrollColumns(delta int) {
	if len(tv.Columns) == 0 {
		return
	}
	tv.LeftColumn = min(max(tv.LeftColumn+delta, 0), len(tv.Columns)-1)
}
