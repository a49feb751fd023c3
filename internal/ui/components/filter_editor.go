package components

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/store"
	"github.com/rebeliceyang/lazynotion/internal/ui/theme"
)

// CloseFilterEditorMsg is sent when the filter editor closes. Closing
// commits the filter, so the app fetches.
type CloseFilterEditorMsg struct{}

type filterEditMode int

const (
	filterModeNavigate filterEditMode = iota
	filterModeValue
	filterModeConfirmClear
)

// filterRow is one visible line of the tree
type filterRow struct {
	node  models.FilterNode
	index int // position among its siblings
}

// FilterEditor edits the filter tree held by the store
type FilterEditor struct {
	Width  int
	Height int
	Theme  theme.Theme

	store  *store.Store
	rows   []filterRow
	cursor int
	offset int
	mode   filterEditMode
	input  textinput.Model

	// status is a one-line notice, such as a copy confirmation
	status string
	// actionErr is the error of the last rejected action
	actionErr string

	writeClipboard func(string) error
}

// NewFilterEditor creates a filter editor over s
func NewFilterEditor(s *store.Store, th theme.Theme) *FilterEditor {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	fe := &FilterEditor{
		Width:          80,
		Height:         30,
		Theme:          th,
		store:          s,
		input:          ti,
		writeClipboard: clipboard.WriteAll,
	}
	fe.Refresh()
	return fe
}

// Refresh rebuilds the visible rows from the store
func (fe *FilterEditor) Refresh() {
	tree := fe.store.State().Filters
	fe.rows = fe.rows[:0]

	var walk func(parentID string)
	walk = func(parentID string) {
		for i, child := range tree.Children(parentID) {
			fe.rows = append(fe.rows, filterRow{node: child, index: i})
			if child.Kind() == models.KindCompound {
				walk(child.NodeID())
			}
		}
	}
	fe.rows = append(fe.rows, filterRow{node: tree.Root()})
	walk(tree.Root().ID)

	if fe.cursor >= len(fe.rows) {
		fe.cursor = len(fe.rows) - 1
	}
}

// selectID moves the cursor to the node with id, if visible
func (fe *FilterEditor) selectID(id string) {
	for i, r := range fe.rows {
		if r.node.NodeID() == id {
			fe.cursor = i
			return
		}
	}
}

func (fe *FilterEditor) current() models.FilterNode {
	return fe.rows[fe.cursor].node
}

// targetGroup is the group new filters are added to: the selected group, or
// the parent of the selected condition
func (fe *FilterEditor) targetGroup() string {
	n := fe.current()
	if n.Kind() == models.KindCompound {
		return n.NodeID()
	}
	return n.Parent()
}

// Editing reports whether keystrokes go to the value input
func (fe *FilterEditor) Editing() bool {
	return fe.mode != filterModeNavigate
}

// Update handles keyboard input
func (fe *FilterEditor) Update(msg tea.KeyMsg) (*FilterEditor, tea.Cmd) {
	fe.status = ""
	switch fe.mode {
	case filterModeValue:
		return fe.handleValueMode(msg)
	case filterModeConfirmClear:
		return fe.handleConfirmClear(msg)
	default:
		return fe.handleNavigationMode(msg)
	}
}

func (fe *FilterEditor) fail(err error) {
	if err == nil {
		fe.actionErr = ""
		return
	}
	fe.actionErr = err.Error()
}

func (fe *FilterEditor) handleNavigationMode(msg tea.KeyMsg) (*FilterEditor, tea.Cmd) {
	fe.actionErr = ""

	switch msg.String() {
	case "esc", "q", "f":
		return fe, func() tea.Msg {
			return CloseFilterEditorMsg{}
		}
	case "up", "k":
		if fe.cursor > 0 {
			fe.cursor--
		}
	case "down", "j":
		if fe.cursor < len(fe.rows)-1 {
			fe.cursor++
		}
	case "a":
		id, err := fe.store.AddBaseFilter(fe.targetGroup())
		fe.fail(err)
		fe.Refresh()
		fe.selectID(id)
	case "g":
		id, err := fe.store.AddCompoundFilter(fe.targetGroup())
		if errors.Is(err, filter.ErrMaxDepth) {
			err = fmt.Errorf("groups can be nested at most %d levels deep", fe.store.State().Filters.MaxDepth())
		}
		fe.fail(err)
		fe.Refresh()
		fe.selectID(id)
	case "d", "x":
		n := fe.current()
		if n.Parent() != "" && fe.store.DeleteFilter(n.NodeID()) {
			fe.Refresh()
		}
	case "p":
		fe.cycleProperty(1)
	case "P":
		fe.cycleProperty(-1)
	case "o":
		fe.cycleOperator(1)
	case "O":
		fe.cycleOperator(-1)
	case "c":
		fe.toggleCombinator()
	case "enter", "e":
		if fe.current().Kind() == models.KindCompound {
			fe.toggleCombinator()
			return fe, nil
		}
		return fe, fe.startValueEdit()
	case "v", " ":
		fe.cycleValue()
	case "n", "!":
		if fe.current().Kind() == models.KindCompound {
			fe.fail(fe.store.ToggleCompoundFilterNegation(fe.current().NodeID()))
			fe.Refresh()
		}
	case "X":
		fe.mode = filterModeConfirmClear
	case "y":
		fe.copyCompiled()
	}
	return fe, nil
}

func (fe *FilterEditor) handleConfirmClear(msg tea.KeyMsg) (*FilterEditor, tea.Cmd) {
	if msg.String() == "y" || msg.String() == "Y" {
		fe.store.ClearFilters()
		fe.cursor = 0
		fe.Refresh()
	}
	fe.mode = filterModeNavigate
	return fe, nil
}

func (fe *FilterEditor) handleValueMode(msg tea.KeyMsg) (*FilterEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		fe.mode = filterModeNavigate
		fe.input.Blur()
		return fe, nil
	case "enter":
		base, ok := fe.current().(*models.BaseFilter)
		if !ok {
			fe.mode = filterModeNavigate
			return fe, nil
		}
		value, err := parseValue(base, fe.input.Value())
		if err != nil {
			fe.fail(err)
			return fe, nil
		}
		fe.actionErr = ""
		fe.store.UpdateBaseFilterValue(base.ID, value)
		fe.mode = filterModeNavigate
		fe.input.Blur()
		fe.Refresh()
		return fe, nil
	}

	var cmd tea.Cmd
	fe.input, cmd = fe.input.Update(msg)
	return fe, cmd
}

// filterableProperties are the schema properties a condition can use
func (fe *FilterEditor) filterableProperties() []models.PropertyInfo {
	var props []models.PropertyInfo
	for _, p := range fe.store.State().Schema {
		if filter.IsPropertyTypeSupported(p.Type) {
			props = append(props, p)
		}
	}
	return props
}

func (fe *FilterEditor) cycleProperty(delta int) {
	base, ok := fe.current().(*models.BaseFilter)
	if !ok {
		return
	}
	props := fe.filterableProperties()
	if len(props) == 0 {
		return
	}
	i := 0
	for j, p := range props {
		if p.Name == base.Property {
			i = j
			break
		}
	}
	next := props[wrap(i+delta, len(props))]
	fe.store.UpdateBaseFilterProperty(base.ID, next.Name)
	fe.Refresh()
}

func (fe *FilterEditor) cycleOperator(delta int) {
	base, ok := fe.current().(*models.BaseFilter)
	if !ok {
		return
	}
	ops := filter.OperatorsFor(base.Type)
	if len(ops) == 0 {
		return
	}
	i := 0
	for j, op := range ops {
		if op.Key == base.Operator {
			i = j
			break
		}
	}
	fe.store.UpdateBaseFilterOperator(base.ID, ops[wrap(i+delta, len(ops))].Key)
	fe.Refresh()
}

func (fe *FilterEditor) toggleCombinator() {
	group, ok := fe.current().(*models.CompoundFilter)
	if !ok {
		return
	}
	fe.store.UpdateCompoundFilterOperator(group.ID, group.Operator.Dual())
	fe.Refresh()
}

// valueChoices lists the values a condition can cycle through. It is nil for
// free-form values.
func (fe *FilterEditor) valueChoices(base *models.BaseFilter) []any {
	vt, _ := filter.ValueTypeOf(base.Type, base.Operator)
	switch {
	case vt == models.ValueAlwaysTrue:
		return nil
	case base.Type == models.PropertyCheckbox:
		choices := make([]any, len(filter.CheckboxOptions))
		for i, o := range filter.CheckboxOptions {
			choices[i] = o.Value
		}
		return choices
	case vt == models.ValueSelect || vt == models.ValueMultiSelect:
		opts := fe.store.PropertySelectOptions(base.Property)
		choices := make([]any, len(opts))
		for i, o := range opts {
			choices[i] = o.Name
		}
		return choices
	}
	return nil
}

func (fe *FilterEditor) cycleValue() {
	base, ok := fe.current().(*models.BaseFilter)
	if !ok {
		return
	}
	choices := fe.valueChoices(base)
	if len(choices) == 0 {
		return
	}
	next := choices[0]
	for i, c := range choices {
		if c == base.Value {
			next = choices[wrap(i+1, len(choices))]
			break
		}
	}
	fe.store.UpdateBaseFilterValue(base.ID, next)
	fe.Refresh()
}

func (fe *FilterEditor) startValueEdit() tea.Cmd {
	base, ok := fe.current().(*models.BaseFilter)
	if !ok {
		return nil
	}
	vt, _ := filter.ValueTypeOf(base.Type, base.Operator)
	if vt == models.ValueAlwaysTrue {
		return nil
	}
	if fe.valueChoices(base) != nil {
		fe.cycleValue()
		return nil
	}

	fe.input.SetValue(formatValue(base.Value))
	fe.input.CursorEnd()
	switch vt {
	case models.ValueDate:
		fe.input.Placeholder = "YYYY-MM-DD"
	case models.ValueNumber:
		fe.input.Placeholder = "number"
	default:
		fe.input.Placeholder = "text"
	}
	fe.mode = filterModeValue
	return fe.input.Focus()
}

// parseValue converts typed input to the value stored for base's operator
func parseValue(base *models.BaseFilter, input string) (any, error) {
	input = strings.TrimSpace(input)
	vt, _ := filter.ValueTypeOf(base.Type, base.Operator)

	switch vt {
	case models.ValueNumber:
		if input == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", input)
		}
		return n, nil
	case models.ValueDate:
		if input == "" {
			return "", nil
		}
		if _, err := time.Parse("2006-01-02", input); err != nil {
			return nil, fmt.Errorf("%q is not a date (YYYY-MM-DD)", input)
		}
		return input, nil
	default:
		return input, nil
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (fe *FilterEditor) copyCompiled() {
	res := fe.store.CompileFilters()
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fe.fail(err)
		return
	}
	if err := fe.writeClipboard(string(data)); err != nil {
		fe.fail(fmt.Errorf("copy failed: %w", err))
		return
	}
	fe.status = "Copied filter JSON to clipboard"
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// View renders the filter editor
func (fe *FilterEditor) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(fe.Theme.Foreground).
		Background(fe.Theme.Info).
		Padding(0, 1).
		Bold(true)
	sections = append(sections, titleStyle.Render("Filter"))

	instructionStyle := lipgloss.NewStyle().
		Foreground(fe.Theme.Muted).
		Padding(0, 1)

	var instructions string
	switch fe.mode {
	case filterModeValue:
		instructions = "Type value, Enter to confirm, Esc to cancel"
	case filterModeConfirmClear:
		instructions = "Remove every filter? y to confirm, any other key to keep"
	default:
		instructions = "a=Condition g=Group d=Delete p/o=Property/Operator e=Value c=And/Or"
		if fe.store.NegationEnabled() {
			instructions += " n=Not"
		}
		instructions += " X=Clear y=Copy Esc=Apply"
	}
	sections = append(sections, instructionStyle.Render(instructions), "")

	sections = append(sections, fe.renderRows()...)

	if fe.mode == filterModeValue {
		sections = append(sections, "", "Value: "+fe.input.View())
	}

	if fe.actionErr != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(fe.Theme.Error).
			Padding(0, 1).
			Bold(true)
		sections = append(sections, "", errorStyle.Render("Error: "+fe.actionErr))
	}
	if fe.status != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(fe.Theme.Success).Padding(0, 1).Render(fe.status))
	}

	sections = append(sections, "", fe.renderPreview())

	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(fe.Theme.BorderFocused).
		Width(fe.Width).
		Height(fe.Height).
		Padding(1)

	return containerStyle.Render(strings.Join(sections, "\n"))
}

func (fe *FilterEditor) renderRows() []string {
	visible := max(fe.Height-16, 3)
	if fe.cursor < fe.offset {
		fe.offset = fe.cursor
	}
	if fe.cursor >= fe.offset+visible {
		fe.offset = fe.cursor - visible + 1
	}
	end := min(fe.offset+visible, len(fe.rows))

	tree := fe.store.State().Filters
	var lines []string
	for i := fe.offset; i < end; i++ {
		line := fe.renderRow(tree, fe.rows[i])
		style := lipgloss.NewStyle().Padding(0, 1)
		if i == fe.cursor && fe.mode != filterModeConfirmClear {
			style = style.Background(fe.Theme.Selection).Foreground(fe.Theme.Foreground)
		}
		lines = append(lines, style.Render(line))
	}
	if len(fe.rows) == 1 {
		lines = append(lines, lipgloss.NewStyle().Foreground(fe.Theme.Muted).Padding(0, 1).Render("  No filters. Press 'a' to add one."))
	}
	return lines
}

func (fe *FilterEditor) renderRow(tree *filter.Tree, row filterRow) string {
	indent := strings.Repeat("  ", row.node.NodeDepth())
	combinator := lipgloss.NewStyle().Foreground(fe.Theme.Combinator)
	not := lipgloss.NewStyle().Foreground(fe.Theme.Negated).Bold(true)

	// the word joining a node to its previous sibling
	lead := "where"
	if row.index > 0 {
		if parent, ok := tree.Get(row.node.Parent()); ok {
			lead = string(parent.(*models.CompoundFilter).Operator)
		}
	}

	switch n := row.node.(type) {
	case *models.CompoundFilter:
		label := fmt.Sprintf("%s group", strings.ToUpper(string(n.Operator)))
		if n.Parent() == "" {
			label = fmt.Sprintf("Records matching %s of", map[models.CompoundOperator]string{
				models.CompoundAnd: "all",
				models.CompoundOr:  "any",
			}[n.Operator])
		} else {
			label = combinator.Render(lead) + " " + label
		}
		if n.IsNegated {
			label = not.Render("NOT") + " " + label
		}
		return indent + "▾ " + label

	case *models.BaseFilter:
		property := lipgloss.NewStyle().Foreground(fe.Theme.Property).Render(n.Property)
		opLabel := n.Operator
		vt := models.ValueType("")
		if d, ok := filter.Descriptor(n.Type, n.Operator); ok {
			opLabel = d.Label
			vt = d.ValueType
		}
		operator := lipgloss.NewStyle().Foreground(fe.Theme.Operator).Render(opLabel)
		line := fmt.Sprintf("%s%s %s %s", indent, combinator.Render(lead), property, operator)
		if vt != models.ValueAlwaysTrue {
			value := formatValue(n.Value)
			if n.Type == models.PropertyCheckbox {
				value = checkboxLabel(n.Value)
			}
			if value == "" {
				value = "…"
			}
			line += " " + lipgloss.NewStyle().Foreground(fe.Theme.Value).Render(value)
		}
		return line
	}
	return indent
}

func checkboxLabel(v any) string {
	for _, o := range filter.CheckboxOptions {
		if b, ok := v.(bool); ok && b == o.Value {
			return o.Label
		}
	}
	return ""
}

func (fe *FilterEditor) renderPreview() string {
	res := fe.store.CompileFilters()
	if !res.OK() {
		return lipgloss.NewStyle().
			Foreground(fe.Theme.Error).
			Padding(0, 1).
			Render("✗ " + res.Error())
	}
	data, err := json.Marshal(res)
	if err != nil {
		return lipgloss.NewStyle().Foreground(fe.Theme.Error).Padding(0, 1).Render(err.Error())
	}
	return lipgloss.NewStyle().
		Foreground(fe.Theme.Preview).
		Italic(true).
		Padding(0, 1).
		Width(fe.Width - 4).
		Render(string(data))
}
