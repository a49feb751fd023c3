package filter

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

// DefaultMaxDepth is the deepest level a filter group may be created at
const DefaultMaxDepth = 5

var (
	ErrFilterNotFound       = errors.New("filter not found")
	ErrNotCompound          = errors.New("filter is not a group")
	ErrNoFilterableProperty = errors.New("no filterable property in schema")
	ErrMaxDepth             = errors.New("maximum filter depth reached")
	ErrInvalidTree          = errors.New("invalid filter tree")
)

// Tree holds every filter node keyed by id. Parent/child relations are kept
// only as parent ids; children are found by scanning in insertion order, so
// iteration is deterministic.
type Tree struct {
	nodes    map[string]models.FilterNode
	order    []string
	maxDepth int
	newID    func() string
}

// Option configures a Tree
type Option func(*Tree)

// WithMaxDepth limits how deep groups can be nested
func WithMaxDepth(depth int) Option {
	return func(t *Tree) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithIDGenerator replaces the uuid node id generator
func WithIDGenerator(fn func() string) Option {
	return func(t *Tree) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// NewTree returns a tree holding only the root group
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		maxDepth: DefaultMaxDepth,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.reset()
	return t
}

func (t *Tree) reset() {
	t.nodes = map[string]models.FilterNode{models.RootFilterID: models.NewRootFilter()}
	t.order = []string{models.RootFilterID}
}

func (t *Tree) insert(n models.FilterNode) {
	t.nodes[n.NodeID()] = n
	t.order = append(t.order, n.NodeID())
}

// MaxDepth returns the nesting limit for groups
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// Len returns the number of nodes, root included
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns a node by id
func (t *Tree) Get(id string) (models.FilterNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Root returns the root group
func (t *Tree) Root() *models.CompoundFilter {
	root, _ := t.nodes[models.RootFilterID].(*models.CompoundFilter)
	return root
}

// Nodes returns every node in insertion order
func (t *Tree) Nodes() []models.FilterNode {
	nodes := make([]models.FilterNode, 0, len(t.order))
	for _, id := range t.order {
		nodes = append(nodes, t.nodes[id])
	}
	return nodes
}

// Children returns the direct children of parentID in insertion order. An
// empty parentID yields the top level, which is the root alone.
func (t *Tree) Children(parentID string) []models.FilterNode {
	var children []models.FilterNode
	for _, id := range t.order {
		if n := t.nodes[id]; n.Parent() == parentID {
			children = append(children, n)
		}
	}
	return children
}

// BaseFilterCount returns the number of conditions in the tree
func (t *Tree) BaseFilterCount() int {
	count := 0
	for _, n := range t.nodes {
		if n.Kind() == models.KindBase {
			count++
		}
	}
	return count
}

func (t *Tree) compound(id string) (*models.CompoundFilter, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFilterNotFound, id)
	}
	c, ok := n.(*models.CompoundFilter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCompound, id)
	}
	return c, nil
}

func (t *Tree) base(id string) (*models.BaseFilter, bool) {
	b, ok := t.nodes[id].(*models.BaseFilter)
	return b, ok
}

// AddBaseFilter adds a condition under parentID on the first filterable
// property of schema, using that type's default operator and an empty value.
func (t *Tree) AddBaseFilter(parentID string, schema models.Schema) (string, error) {
	parent, err := t.compound(parentID)
	if err != nil {
		return "", err
	}

	for _, prop := range schema {
		if !IsPropertyTypeSupported(prop.Type) {
			continue
		}
		operator, ok := DefaultOperator(prop.Type)
		if !ok {
			continue
		}
		vt, _ := ValueTypeOf(prop.Type, operator)

		f := &models.BaseFilter{
			NestedFilter: models.NestedFilter{
				ID:       t.newID(),
				ParentID: parent.ID,
				Depth:    parent.Depth + 1,
			},
			Property: prop.Name,
			Type:     prop.Type,
			Operator: operator,
			Value:    EmptyValue(vt),
		}
		t.insert(f)
		return f.ID, nil
	}

	return "", ErrNoFilterableProperty
}

// AddCompoundFilter adds an empty "and" group under parentID and seeds it with
// one condition, so a group is never empty.
func (t *Tree) AddCompoundFilter(parentID string, schema models.Schema) (string, error) {
	parent, err := t.compound(parentID)
	if err != nil {
		return "", err
	}
	if parent.Depth+1 > t.maxDepth {
		return "", fmt.Errorf("%w: %d", ErrMaxDepth, t.maxDepth)
	}

	hasFilterable := false
	for _, prop := range schema {
		if IsPropertyTypeSupported(prop.Type) {
			hasFilterable = true
			break
		}
	}
	if !hasFilterable {
		return "", ErrNoFilterableProperty
	}

	group := &models.CompoundFilter{
		NestedFilter: models.NestedFilter{
			ID:       t.newID(),
			ParentID: parent.ID,
			Depth:    parent.Depth + 1,
		},
		Operator: models.CompoundAnd,
	}
	t.insert(group)

	if _, err := t.AddBaseFilter(group.ID, schema); err != nil {
		t.remove(group.ID)
		return "", err
	}
	return group.ID, nil
}

// UpdateBaseFilterProperty points a condition at another property and resets
// its operator and value. It does nothing when the filter is not a condition,
// the property is not in schema, or its type cannot be filtered.
func (t *Tree) UpdateBaseFilterProperty(id, property string, schema models.Schema) bool {
	f, ok := t.base(id)
	if !ok {
		return false
	}
	prop, ok := schema.Lookup(property)
	if !ok || !IsPropertyTypeSupported(prop.Type) {
		return false
	}
	operator, ok := DefaultOperator(prop.Type)
	if !ok {
		return false
	}
	vt, _ := ValueTypeOf(prop.Type, operator)

	updated := *f
	updated.Property = prop.Name
	updated.Type = prop.Type
	updated.Operator = operator
	updated.Value = EmptyValue(vt)
	t.nodes[id] = &updated
	return true
}

// UpdateBaseFilterOperator changes a condition's operator. The value is kept
// when the old and new operators take the same kind of value, set to true for
// operators that take no value, and reset otherwise.
func (t *Tree) UpdateBaseFilterOperator(id, operator string) bool {
	f, ok := t.base(id)
	if !ok {
		return false
	}
	newType, ok := ValueTypeOf(f.Type, operator)
	if !ok {
		return false
	}
	oldType, _ := ValueTypeOf(f.Type, f.Operator)

	updated := *f
	updated.Operator = operator
	switch {
	case newType == models.ValueAlwaysTrue:
		updated.Value = true
	case newType != oldType:
		updated.Value = EmptyValue(newType)
	}
	t.nodes[id] = &updated
	return true
}

// UpdateBaseFilterValue replaces a condition's value as given
func (t *Tree) UpdateBaseFilterValue(id string, value any) bool {
	f, ok := t.base(id)
	if !ok {
		return false
	}
	updated := *f
	updated.Value = value
	t.nodes[id] = &updated
	return true
}

// UpdateCompoundFilterOperator switches a group between "and" and "or"
func (t *Tree) UpdateCompoundFilterOperator(id string, operator models.CompoundOperator) bool {
	if !operator.Valid() {
		return false
	}
	c, err := t.compound(id)
	if err != nil {
		return false
	}
	updated := *c
	updated.Operator = operator
	t.nodes[id] = &updated
	return true
}

// SetCompoundFilterNegation sets whether a group is negated
func (t *Tree) SetCompoundFilterNegation(id string, negated bool) bool {
	c, err := t.compound(id)
	if err != nil {
		return false
	}
	updated := *c
	updated.IsNegated = negated
	t.nodes[id] = &updated
	return true
}

// ToggleCompoundFilterNegation flips a group's negation flag
func (t *Tree) ToggleCompoundFilterNegation(id string) bool {
	c, err := t.compound(id)
	if err != nil {
		return false
	}
	return t.SetCompoundFilterNegation(id, !c.IsNegated)
}

// DeleteFilter removes a node and all of its descendants, children first. The
// root and unknown ids are ignored.
func (t *Tree) DeleteFilter(id string) bool {
	if id == models.RootFilterID {
		return false
	}
	if _, ok := t.nodes[id]; !ok {
		return false
	}

	// post-order: a node is removed only after every child was removed
	type frame struct {
		id       string
		expanded bool
	}
	stack := []frame{{id: id}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded {
			t.remove(top.id)
			stack = stack[:len(stack)-1]
			continue
		}
		top.expanded = true
		for _, child := range t.Children(top.id) {
			stack = append(stack, frame{id: child.NodeID()})
		}
	}
	return true
}

func (t *Tree) remove(id string) {
	delete(t.nodes, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Clear resets the tree to an empty, non-negated "and" root
func (t *Tree) Clear() {
	t.reset()
}

// Clone returns a deep copy of the tree
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes:    make(map[string]models.FilterNode, len(t.nodes)),
		order:    make([]string, len(t.order)),
		maxDepth: t.maxDepth,
		newID:    t.newID,
	}
	copy(c.order, t.order)
	for id, n := range t.nodes {
		switch f := n.(type) {
		case *models.BaseFilter:
			cp := *f
			c.nodes[id] = &cp
		case *models.CompoundFilter:
			cp := *f
			c.nodes[id] = &cp
		}
	}
	return c
}

// Snapshot returns every node in its flat form, in insertion order
func (t *Tree) Snapshot() []models.FilterNodeRecord {
	records := make([]models.FilterNodeRecord, 0, len(t.order))
	for _, n := range t.Nodes() {
		records = append(records, models.ToRecord(n))
	}
	return records
}

// Restore rebuilds a tree from a snapshot after checking that it has exactly
// one root and that every parent exists and is a group. Depths must be
// consistent and groups may not sit deeper than the tree's max depth. Every
// condition must use a configured operator with a value of the right shape.
func Restore(records []models.FilterNodeRecord, opts ...Option) (*Tree, error) {
	t := NewTree(opts...)
	t.nodes = make(map[string]models.FilterNode, len(records))
	t.order = make([]string, 0, len(records))

	byID := make(map[string]models.FilterNodeRecord, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrInvalidTree)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidTree, r.ID)
		}
		byID[r.ID] = r
	}

	root, ok := byID[models.RootFilterID]
	if !ok || root.Kind != models.KindCompound || root.ParentID != "" || root.Depth != 0 {
		return nil, fmt.Errorf("%w: missing or malformed root", ErrInvalidTree)
	}

	for _, r := range records {
		if r.ID != models.RootFilterID {
			parent, ok := byID[r.ParentID]
			if !ok {
				return nil, fmt.Errorf("%w: %s has unknown parent %q", ErrInvalidTree, r.ID, r.ParentID)
			}
			if parent.Kind != models.KindCompound {
				return nil, fmt.Errorf("%w: parent of %s is not a group", ErrInvalidTree, r.ID)
			}
			if r.Depth != parent.Depth+1 {
				return nil, fmt.Errorf("%w: %s has depth %d under parent depth %d", ErrInvalidTree, r.ID, r.Depth, parent.Depth)
			}
		}

		switch r.Kind {
		case models.KindBase:
			if _, ok := ValueTypeOf(r.Type, r.Operator); !ok {
				return nil, fmt.Errorf("%w: %s uses unknown operator %s for %s", ErrInvalidTree, r.ID, r.Operator, r.Type)
			}
			if !valueFits(r.Type, r.Operator, r.Value) {
				return nil, fmt.Errorf("%w: %s has value %v (%T) for %s %s", ErrInvalidTree, r.ID, r.Value, r.Value, r.Type, r.Operator)
			}
		case models.KindCompound:
			if !r.Combinator.Valid() {
				return nil, fmt.Errorf("%w: %s has combinator %q", ErrInvalidTree, r.ID, r.Combinator)
			}
			if r.Depth > t.maxDepth {
				return nil, fmt.Errorf("%w: %w: %s sits at depth %d", ErrInvalidTree, ErrMaxDepth, r.ID, r.Depth)
			}
		default:
			return nil, fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidTree, r.ID, r.Kind)
		}

		t.insert(r.ToNode())
	}

	return t, nil
}

// valueFits reports whether v has the shape the operator expects. Numbers may
// be any numeric kind since YAML decodes whole numbers as int. An unset
// checkbox value is the empty string.
func valueFits(pt models.PropertyType, op string, v any) bool {
	vt, _ := ValueTypeOf(pt, op)
	switch vt {
	case models.ValueAlwaysTrue:
		b, ok := v.(bool)
		return ok && b
	case models.ValueNumber:
		switch v.(type) {
		case nil, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case models.ValueSelect:
		if pt == models.PropertyCheckbox {
			if s, ok := v.(string); ok {
				return s == ""
			}
			_, ok := v.(bool)
			return ok
		}
		_, ok := v.(string)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}
