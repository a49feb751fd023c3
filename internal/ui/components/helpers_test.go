package components

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/store"
)

// key builds a key message the way bubbletea reports it
func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func value(typ models.PropertyType, raw string) models.PropertyValue {
	return models.PropertyValue{Type: typ, Raw: json.RawMessage(raw)}
}

// testRecords yield the schema Name, Done, Estimate, Status
func testRecords() []models.Record {
	return []models.Record{
		{
			ID: "1",
			Properties: map[string]models.PropertyValue{
				"Name":     value(models.PropertyTitle, `[{"plain_text":"Write docs"}]`),
				"Status":   value(models.PropertySelect, `{"name":"Done"}`),
				"Done":     value(models.PropertyCheckbox, `true`),
				"Estimate": value(models.PropertyNumber, `3`),
			},
		},
		{
			ID: "2",
			Properties: map[string]models.PropertyValue{
				"Name":     value(models.PropertyTitle, `[{"plain_text":"Fix bug"}]`),
				"Status":   value(models.PropertySelect, `{"name":"Todo"}`),
				"Done":     value(models.PropertyCheckbox, `false`),
				"Estimate": value(models.PropertyNumber, `null`),
			},
		},
	}
}

func newLoadedStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s := store.New(nil, opts...)
	s.Load(testRecords())
	return s
}

// run executes a command and returns its message, nil for no command
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}
