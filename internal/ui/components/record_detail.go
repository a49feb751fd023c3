package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/jsonb"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// CloseRecordDetailMsg is sent when the record detail closes
type CloseRecordDetailMsg struct{}

// RecordDetail shows every property of one record, either as displayed in
// the table or as the raw JSON the service returned
type RecordDetail struct {
	Width  int
	Height int
	Theme  theme.Theme

	record models.Record
	schema models.Schema
	raw    bool
	offset int
}

// NewRecordDetail creates a detail view of r
func NewRecordDetail(r models.Record, schema models.Schema, th theme.Theme) *RecordDetail {
	return &RecordDetail{
		Width:  80,
		Height: 30,
		Theme:  th,
		record: r,
		schema: schema,
	}
}

// Update handles keyboard input
func (rd *RecordDetail) Update(msg tea.KeyMsg) (*RecordDetail, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		return rd, func() tea.Msg {
			return CloseRecordDetailMsg{}
		}
	case "r":
		rd.raw = !rd.raw
		rd.offset = 0
	case "up", "k":
		if rd.offset > 0 {
			rd.offset--
		}
	case "down", "j":
		if rd.offset < len(rd.lines())-1 {
			rd.offset++
		}
	}
	return rd, nil
}

// lines renders the body, one property after the other
func (rd *RecordDetail) lines() []string {
	nameStyle := lipgloss.NewStyle().Foreground(rd.Theme.Property).Bold(true)
	typeStyle := lipgloss.NewStyle().Foreground(rd.Theme.Muted)
	valueStyle := lipgloss.NewStyle().Foreground(rd.Theme.Value)

	var lines []string
	for _, prop := range rd.schema {
		v, ok := rd.record.Properties[prop.Name]
		if !ok {
			continue
		}
		header := nameStyle.Render(prop.Name) + " " + typeStyle.Render(fmt.Sprintf("(%s)", v.Type))

		if !rd.raw {
			value := v.Display()
			if value == "" {
				value = typeStyle.Render("empty")
			}
			lines = append(lines, fmt.Sprintf("%s  %s", header, valueStyle.Render(value)))
			continue
		}

		lines = append(lines, header+" "+typeStyle.Render(jsonb.Type(v.Raw)))
		formatted, err := jsonb.Format(v.Raw)
		if err != nil {
			formatted = err.Error()
		}
		for _, l := range strings.Split(formatted, "\n") {
			lines = append(lines, "  "+l)
		}
	}
	return lines
}

// View renders the record detail
func (rd *RecordDetail) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(rd.Theme.Foreground).
		Background(rd.Theme.Info).
		Padding(0, 1).
		Bold(true)
	title := rd.record.ID
	if rd.record.URL != "" {
		title = rd.record.URL
	}
	sections = append(sections, titleStyle.Render(title))

	mode := "r=Raw JSON"
	if rd.raw {
		mode = "r=Values"
	}
	sections = append(sections, lipgloss.NewStyle().
		Foreground(rd.Theme.Muted).
		Padding(0, 1).
		Render("↑↓ Scroll  "+mode+"  Esc=Close"), "")

	lines := rd.lines()
	visible := max(rd.Height-8, 1)
	end := min(rd.offset+visible, len(lines))
	if rd.offset < end {
		sections = append(sections, lines[rd.offset:end]...)
	}

	if !rd.record.LastEditedTime.IsZero() {
		sections = append(sections, "", lipgloss.NewStyle().Faint(true).Render(
			"Last edited "+rd.record.LastEditedTime.Format("2006-01-02 15:04")))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(rd.Theme.BorderFocused).
		Width(rd.Width).
		Height(rd.Height).
		Padding(1).
		Render(strings.Join(sections, "\n"))
}
