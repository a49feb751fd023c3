package filter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/stretchr/testify/require"
)

var testSchema = models.Schema{
	{Name: "Name", Type: models.PropertyTitle},
	{Name: "Status", Type: models.PropertySelect},
	{Name: "Tags", Type: models.PropertyMultiSelect},
	{Name: "Points", Type: models.PropertyNumber},
	{Name: "Done", Type: models.PropertyCheckbox},
	{Name: "Due", Type: models.PropertyDate},
	{Name: "Created", Type: models.PropertyTimestamp},
}

// newTestTree returns a tree with predictable ids f1, f2, ...
func newTestTree(opts ...Option) *Tree {
	n := 0
	gen := WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("f%d", n)
	})
	return NewTree(append([]Option{gen}, opts...)...)
}

func mustBase(t *testing.T, tree *Tree, id string) *models.BaseFilter {
	t.Helper()
	n, ok := tree.Get(id)
	require.True(t, ok, "filter %s not found", id)
	f, ok := n.(*models.BaseFilter)
	require.True(t, ok, "filter %s is not a condition", id)
	return f
}

func mustCompound(t *testing.T, tree *Tree, id string) *models.CompoundFilter {
	t.Helper()
	n, ok := tree.Get(id)
	require.True(t, ok, "filter %s not found", id)
	f, ok := n.(*models.CompoundFilter)
	require.True(t, ok, "filter %s is not a group", id)
	return f
}

// checkInvariants verifies parent links and depths of every node
func checkInvariants(t *testing.T, tree *Tree) {
	t.Helper()
	roots := 0
	for _, n := range tree.Nodes() {
		if n.Parent() == "" {
			roots++
			if n.NodeID() != models.RootFilterID || n.NodeDepth() != 0 {
				t.Errorf("unexpected top-level node %s at depth %d", n.NodeID(), n.NodeDepth())
			}
			continue
		}
		parent, ok := tree.Get(n.Parent())
		if !ok {
			t.Errorf("node %s has dangling parent %s", n.NodeID(), n.Parent())
			continue
		}
		if parent.Kind() != models.KindCompound {
			t.Errorf("parent of %s is not a group", n.NodeID())
		}
		if n.NodeDepth() != parent.NodeDepth()+1 {
			t.Errorf("node %s depth %d, parent depth %d", n.NodeID(), n.NodeDepth(), parent.NodeDepth())
		}
	}
	if roots != 1 {
		t.Errorf("expected exactly one root, got %d", roots)
	}
}

func TestNewTree(t *testing.T) {
	tree := NewTree()

	if tree.Len() != 1 {
		t.Fatalf("expected only the root, got %d nodes", tree.Len())
	}
	root := tree.Root()
	if root == nil {
		t.Fatal("expected root group")
	}
	want := models.NewRootFilter()
	if diff := cmp.Diff(want, root); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}
	if tree.MaxDepth() != DefaultMaxDepth {
		t.Errorf("expected max depth %d, got %d", DefaultMaxDepth, tree.MaxDepth())
	}
}

func TestAddBaseFilter(t *testing.T) {
	tree := newTestTree()

	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	got := mustBase(t, tree, id)
	want := &models.BaseFilter{
		NestedFilter: models.NestedFilter{ID: "f1", ParentID: models.RootFilterID, Depth: 1},
		Property:     "Name",
		Type:         models.PropertyTitle,
		Operator:     "contains",
		Value:        "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestAddBaseFilter_SkipsUnsupportedTypes(t *testing.T) {
	tree := newTestTree()
	schema := models.Schema{
		{Name: "Created", Type: models.PropertyTimestamp},
		{Name: "Files", Type: "files"},
		{Name: "Due", Type: models.PropertyDate},
	}

	id, err := tree.AddBaseFilter(models.RootFilterID, schema)
	require.NoError(t, err)

	f := mustBase(t, tree, id)
	if f.Property != "Due" || f.Operator != "is_not_empty" {
		t.Errorf("expected Due is_not_empty, got %s %s", f.Property, f.Operator)
	}
	if f.Value != true {
		t.Errorf("expected always-true value, got %v", f.Value)
	}
}

func TestAddBaseFilter_Errors(t *testing.T) {
	tree := newTestTree()

	_, err := tree.AddBaseFilter("missing", testSchema)
	if !errors.Is(err, ErrFilterNotFound) {
		t.Errorf("expected ErrFilterNotFound, got %v", err)
	}

	leaf, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	_, err = tree.AddBaseFilter(leaf, testSchema)
	if !errors.Is(err, ErrNotCompound) {
		t.Errorf("expected ErrNotCompound, got %v", err)
	}

	_, err = tree.AddBaseFilter(models.RootFilterID, models.Schema{{Name: "Created", Type: models.PropertyTimestamp}})
	if !errors.Is(err, ErrNoFilterableProperty) {
		t.Errorf("expected ErrNoFilterableProperty, got %v", err)
	}

	if tree.Len() != 2 {
		t.Errorf("expected failed adds to leave the tree alone, got %d nodes", tree.Len())
	}
}

func TestAddCompoundFilter(t *testing.T) {
	tree := newTestTree()

	groupID, err := tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	group := mustCompound(t, tree, groupID)
	if group.Operator != models.CompoundAnd || group.IsNegated || group.Depth != 1 {
		t.Errorf("unexpected group %+v", group)
	}

	children := tree.Children(groupID)
	if len(children) != 1 {
		t.Fatalf("expected group to be seeded with one condition, got %d", len(children))
	}
	if children[0].Kind() != models.KindBase || children[0].NodeDepth() != 2 {
		t.Errorf("unexpected seeded child %+v", children[0])
	}
	checkInvariants(t, tree)
}

func TestAddCompoundFilter_MaxDepth(t *testing.T) {
	tree := newTestTree(WithMaxDepth(3))

	parent := models.RootFilterID
	for depth := 1; depth <= 3; depth++ {
		id, err := tree.AddCompoundFilter(parent, testSchema)
		require.NoError(t, err, "depth %d", depth)
		parent = id
	}

	before := tree.Len()
	_, err := tree.AddCompoundFilter(parent, testSchema)
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
	if tree.Len() != before {
		t.Errorf("expected no nodes added, got %d -> %d", before, tree.Len())
	}

	// conditions can still be added at the deepest group
	if _, err := tree.AddBaseFilter(parent, testSchema); err != nil {
		t.Errorf("expected condition to be added at max depth: %v", err)
	}
	checkInvariants(t, tree)
}

func TestAddCompoundFilter_NoFilterableProperty(t *testing.T) {
	tree := newTestTree()

	_, err := tree.AddCompoundFilter(models.RootFilterID, models.Schema{{Name: "Created", Type: models.PropertyTimestamp}})
	if !errors.Is(err, ErrNoFilterableProperty) {
		t.Errorf("expected ErrNoFilterableProperty, got %v", err)
	}
	if tree.Len() != 1 {
		t.Errorf("expected no empty group left behind, got %d nodes", tree.Len())
	}
}

func TestUpdateBaseFilterProperty(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterValue(id, "draft"))

	if !tree.UpdateBaseFilterProperty(id, "Points", testSchema) {
		t.Fatal("expected property update")
	}

	f := mustBase(t, tree, id)
	if f.Property != "Points" || f.Type != models.PropertyNumber {
		t.Errorf("expected Points number, got %s %s", f.Property, f.Type)
	}
	if f.Operator != "equals" {
		t.Errorf("expected operator reset to equals, got %s", f.Operator)
	}
	if f.Value != nil {
		t.Errorf("expected value reset to nil, got %v", f.Value)
	}
}

func TestUpdateBaseFilterProperty_NoOp(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	before := mustBase(t, tree, id)

	tests := []struct {
		name     string
		id       string
		property string
	}{
		{"unknown filter", "missing", "Status"},
		{"root group", models.RootFilterID, "Status"},
		{"property not in schema", id, "Removed"},
		{"unsupported type", id, "Created"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tree.UpdateBaseFilterProperty(tt.id, tt.property, testSchema) {
				t.Error("expected no-op")
			}
		})
	}

	if diff := cmp.Diff(before, mustBase(t, tree, id)); diff != "" {
		t.Errorf("filter changed (-before +after):\n%s", diff)
	}
}

func TestUpdateBaseFilterOperator(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterValue(id, "draft"))

	// same value type keeps the value
	require.True(t, tree.UpdateBaseFilterOperator(id, "starts_with"))
	if f := mustBase(t, tree, id); f.Value != "draft" {
		t.Errorf("expected value kept, got %v", f.Value)
	}

	// no-value operators get the true sentinel
	require.True(t, tree.UpdateBaseFilterOperator(id, "is_empty"))
	if f := mustBase(t, tree, id); f.Value != true {
		t.Errorf("expected true, got %v", f.Value)
	}

	// back to a text operator resets to empty
	require.True(t, tree.UpdateBaseFilterOperator(id, "equals"))
	if f := mustBase(t, tree, id); f.Value != "" {
		t.Errorf("expected empty value, got %v", f.Value)
	}

	// invalid operator for the type is ignored
	if tree.UpdateBaseFilterOperator(id, "greater_than") {
		t.Error("expected invalid operator to be rejected")
	}
	if f := mustBase(t, tree, id); f.Operator != "equals" {
		t.Errorf("expected operator unchanged, got %s", f.Operator)
	}
}

func TestUpdateBaseFilterOperator_AlwaysTrueToAlwaysTrue(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterProperty(id, "Status", testSchema))
	require.True(t, tree.UpdateBaseFilterOperator(id, "is_empty"))
	require.True(t, tree.UpdateBaseFilterOperator(id, "is_not_empty"))

	if f := mustBase(t, tree, id); f.Value != true {
		t.Errorf("expected true, got %v", f.Value)
	}
}

func TestUpdateBaseFilterValue(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterProperty(id, "Tags", testSchema))

	value := []any{"a", "b"}
	if !tree.UpdateBaseFilterValue(id, value) {
		t.Fatal("expected value update")
	}
	if diff := cmp.Diff(value, mustBase(t, tree, id).Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}

	if tree.UpdateBaseFilterValue(models.RootFilterID, "x") {
		t.Error("expected groups to reject values")
	}
}

func TestUpdateCompoundFilterOperator(t *testing.T) {
	tree := newTestTree()

	if !tree.UpdateCompoundFilterOperator(models.RootFilterID, models.CompoundOr) {
		t.Fatal("expected combinator update")
	}
	if tree.Root().Operator != models.CompoundOr {
		t.Errorf("expected or, got %s", tree.Root().Operator)
	}
	if tree.UpdateCompoundFilterOperator(models.RootFilterID, "xor") {
		t.Error("expected invalid combinator to be rejected")
	}

	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	if tree.UpdateCompoundFilterOperator(id, models.CompoundAnd) {
		t.Error("expected conditions to reject combinators")
	}
}

func TestCompoundFilterNegation(t *testing.T) {
	tree := newTestTree()
	groupID, err := tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	require.True(t, tree.ToggleCompoundFilterNegation(groupID))
	if !mustCompound(t, tree, groupID).IsNegated {
		t.Error("expected group to be negated")
	}
	require.True(t, tree.ToggleCompoundFilterNegation(groupID))
	if mustCompound(t, tree, groupID).IsNegated {
		t.Error("expected negation toggled back off")
	}

	require.True(t, tree.SetCompoundFilterNegation(models.RootFilterID, true))
	if !tree.Root().IsNegated {
		t.Error("expected root to be negated")
	}

	leaf := tree.Children(groupID)[0].NodeID()
	if tree.ToggleCompoundFilterNegation(leaf) {
		t.Error("expected conditions to reject negation")
	}
}

func TestDeleteFilter_Recursive(t *testing.T) {
	tree := newTestTree()

	keep, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	outer, err := tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	_, err = tree.AddBaseFilter(outer, testSchema)
	require.NoError(t, err)
	inner, err := tree.AddCompoundFilter(outer, testSchema)
	require.NoError(t, err)
	_, err = tree.AddBaseFilter(inner, testSchema)
	require.NoError(t, err)

	// outer: its seed, one condition, inner group with seed + one condition
	descendants := 5
	before := tree.Len()

	if !tree.DeleteFilter(outer) {
		t.Fatal("expected delete")
	}
	if removed := before - tree.Len(); removed != descendants+1 {
		t.Errorf("expected %d nodes removed, got %d", descendants+1, removed)
	}
	if _, ok := tree.Get(keep); !ok {
		t.Error("expected sibling condition to survive")
	}
	checkInvariants(t, tree)
}

func TestDeleteFilter_RootAndUnknown(t *testing.T) {
	tree := newTestTree()
	_, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	if tree.DeleteFilter(models.RootFilterID) {
		t.Error("expected root delete to be refused")
	}
	if tree.DeleteFilter("missing") {
		t.Error("expected unknown delete to be refused")
	}
	if tree.Len() != 2 {
		t.Errorf("expected tree unchanged, got %d nodes", tree.Len())
	}
}

func TestClear(t *testing.T) {
	tree := newTestTree()
	_, err := tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	tree.UpdateCompoundFilterOperator(models.RootFilterID, models.CompoundOr)
	tree.SetCompoundFilterNegation(models.RootFilterID, true)

	tree.Clear()

	if tree.Len() != 1 {
		t.Errorf("expected only root, got %d nodes", tree.Len())
	}
	if diff := cmp.Diff(models.NewRootFilter(), tree.Root()); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}
}

func TestChildren_InsertionOrder(t *testing.T) {
	tree := newTestTree()
	var want []string
	for i := 0; i < 4; i++ {
		id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
		require.NoError(t, err)
		want = append(want, id)
	}

	var got []string
	for _, n := range tree.Children(models.RootFilterID) {
		got = append(got, n.NodeID())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("children order mismatch (-want +got):\n%s", diff)
	}

	if top := tree.Children(""); len(top) != 1 || top[0].NodeID() != models.RootFilterID {
		t.Errorf("expected the root alone at the top level, got %v", top)
	}
}

func TestBaseFilterCount(t *testing.T) {
	tree := newTestTree()
	_, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	_, err = tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	if got := tree.BaseFilterCount(); got != 2 {
		t.Errorf("expected 2 conditions, got %d", got)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	tree := newTestTree()
	id, err := tree.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	clone := tree.Clone()
	require.True(t, clone.UpdateBaseFilterValue(id, "changed"))
	clone.SetCompoundFilterNegation(models.RootFilterID, true)
	_, err = clone.AddBaseFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)

	if mustBase(t, tree, id).Value != "" {
		t.Error("expected original value untouched")
	}
	if tree.Root().IsNegated {
		t.Error("expected original root untouched")
	}
	if tree.Len() != 2 {
		t.Errorf("expected original to keep 2 nodes, got %d", tree.Len())
	}
}

func TestSnapshotRestore(t *testing.T) {
	tree := newTestTree()
	group, err := tree.AddCompoundFilter(models.RootFilterID, testSchema)
	require.NoError(t, err)
	tree.UpdateCompoundFilterOperator(group, models.CompoundOr)
	tree.SetCompoundFilterNegation(group, true)
	leaf, err := tree.AddBaseFilter(group, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterProperty(leaf, "Status", testSchema))
	require.True(t, tree.UpdateBaseFilterValue(leaf, "Done"))

	restored, err := Restore(tree.Snapshot())
	require.NoError(t, err)

	if diff := cmp.Diff(tree.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	want, got := Compile(tree), Compile(restored)
	require.True(t, want.OK())
	require.True(t, got.OK())
	if diff := cmp.Diff(want.Filter, got.Filter); diff != "" {
		t.Errorf("compiled output mismatch (-want +got):\n%s", diff)
	}
}

func TestRestore_Invalid(t *testing.T) {
	root := models.ToRecord(models.NewRootFilter())
	leaf := models.FilterNodeRecord{
		ID: "a", ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
		Property: "Status", Type: models.PropertySelect, Operator: "equals", Value: "Done",
	}

	tests := []struct {
		name    string
		records []models.FilterNodeRecord
	}{
		{"empty", nil},
		{"no root", []models.FilterNodeRecord{leaf}},
		{"duplicate id", []models.FilterNodeRecord{root, leaf, leaf}},
		{"dangling parent", []models.FilterNodeRecord{root, func() models.FilterNodeRecord {
			r := leaf
			r.ParentID = "gone"
			return r
		}()}},
		{"wrong depth", []models.FilterNodeRecord{root, func() models.FilterNodeRecord {
			r := leaf
			r.Depth = 3
			return r
		}()}},
		{"unknown operator", []models.FilterNodeRecord{root, func() models.FilterNodeRecord {
			r := leaf
			r.Operator = "greater_than"
			return r
		}()}},
		{"parent is a condition", []models.FilterNodeRecord{root, leaf, func() models.FilterNodeRecord {
			r := leaf
			r.ID = "b"
			r.ParentID = "a"
			r.Depth = 2
			return r
		}()}},
		{"bad combinator", []models.FilterNodeRecord{func() models.FilterNodeRecord {
			r := root
			r.Combinator = "xor"
			return r
		}()}},
		{"group too deep", []models.FilterNodeRecord{root, groupRecord("a", models.RootFilterID, 1), groupRecord("b", "a", 2), groupRecord("c", "b", 3)}},
		{"number given a map", []models.FilterNodeRecord{root, {
			ID: "n", ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
			Property: "Estimate", Type: models.PropertyNumber, Operator: "equals", Value: map[string]any{"a": 1},
		}}},
		{"number given text", []models.FilterNodeRecord{root, {
			ID: "n", ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
			Property: "Estimate", Type: models.PropertyNumber, Operator: "greater_than", Value: "3",
		}}},
		{"select given a number", []models.FilterNodeRecord{root, func() models.FilterNodeRecord {
			r := leaf
			r.Value = 3
			return r
		}()}},
		{"checkbox given text", []models.FilterNodeRecord{root, {
			ID: "c", ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
			Property: "Done", Type: models.PropertyCheckbox, Operator: "equals", Value: "yes",
		}}},
		{"always true given false", []models.FilterNodeRecord{root, {
			ID: "e", ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
			Property: "Status", Type: models.PropertySelect, Operator: "is_empty", Value: false,
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.records, WithMaxDepth(2))
			if !errors.Is(err, ErrInvalidTree) {
				t.Errorf("expected ErrInvalidTree, got %v", err)
			}
		})
	}
}

func TestRestore_GroupTooDeepReportsMaxDepth(t *testing.T) {
	records := []models.FilterNodeRecord{
		models.ToRecord(models.NewRootFilter()),
		groupRecord("a", models.RootFilterID, 1),
		groupRecord("b", "a", 2),
		groupRecord("c", "b", 3),
	}

	_, err := Restore(records, WithMaxDepth(2))
	require.ErrorIs(t, err, ErrMaxDepth)

	_, err = Restore(records, WithMaxDepth(3))
	require.NoError(t, err)
}

func TestRestore_AcceptsValueShapes(t *testing.T) {
	root := models.ToRecord(models.NewRootFilter())
	base := func(id string, pt models.PropertyType, op string, v any) models.FilterNodeRecord {
		return models.FilterNodeRecord{
			ID: id, ParentID: models.RootFilterID, Depth: 1, Kind: models.KindBase,
			Property: string(pt), Type: pt, Operator: op, Value: v,
		}
	}

	_, err := Restore([]models.FilterNodeRecord{
		root,
		base("n1", models.PropertyNumber, "equals", 3),
		base("n2", models.PropertyNumber, "less_than", 2.5),
		base("n3", models.PropertyNumber, "equals", nil),
		base("c1", models.PropertyCheckbox, "equals", false),
		base("c2", models.PropertyCheckbox, "equals", ""),
		base("s1", models.PropertySelect, "is_empty", true),
		base("m1", models.PropertyMultiSelect, "contains", "docs"),
		base("t1", models.PropertyRichText, "contains", ""),
	})
	require.NoError(t, err)
}

func groupRecord(id, parent string, depth int) models.FilterNodeRecord {
	return models.FilterNodeRecord{
		ID: id, ParentID: parent, Depth: depth, Kind: models.KindCompound, Combinator: models.CompoundAnd,
	}
}
