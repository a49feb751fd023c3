package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/stretchr/testify/require"
)

// addCondition adds a condition under parent and sets it to property/operator/value
func addCondition(t *testing.T, tree *Tree, parent, property, operator string, value any) string {
	t.Helper()
	id, err := tree.AddBaseFilter(parent, testSchema)
	require.NoError(t, err)
	require.True(t, tree.UpdateBaseFilterProperty(id, property, testSchema), "property %s", property)
	require.True(t, tree.UpdateBaseFilterOperator(id, operator), "operator %s", operator)
	require.True(t, tree.UpdateBaseFilterValue(id, value))
	return id
}

// addGroup adds a group under parent and removes the condition it is seeded with
func addGroup(t *testing.T, tree *Tree, parent string, op models.CompoundOperator, negated bool) string {
	t.Helper()
	id, err := tree.AddCompoundFilter(parent, testSchema)
	require.NoError(t, err)
	for _, child := range tree.Children(id) {
		tree.DeleteFilter(child.NodeID())
	}
	require.True(t, tree.UpdateCompoundFilterOperator(id, op))
	require.True(t, tree.SetCompoundFilterNegation(id, negated))
	return id
}

func mustCompile(t *testing.T, tree *Tree) models.WireFilter {
	t.Helper()
	res := Compile(tree)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Filter)
	return *res.Filter
}

func cond(property string, typ models.PropertyType, operator string, value any) models.WireFilter {
	return models.NewCondition(property, typ, operator, value)
}

func TestCompile_EmptyTree(t *testing.T) {
	tree := newTestTree()

	got := mustCompile(t, tree)
	if diff := cmp.Diff(models.NewGroup(models.CompoundAnd), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(Compile(tree))
	require.NoError(t, err)
	if string(data) != `{"and":[]}` {
		t.Errorf("unexpected json %s", data)
	}
}

func TestCompile_ClearedTree(t *testing.T) {
	tree := newTestTree()
	group := addGroup(t, tree, models.RootFilterID, models.CompoundOr, true)
	addCondition(t, tree, group, "Name", "starts_with", "x")
	tree.UpdateCompoundFilterOperator(models.RootFilterID, models.CompoundOr)

	// fails before clearing: starts_with cannot be negated
	require.False(t, Compile(tree).OK())

	tree.Clear()
	got := mustCompile(t, tree)
	if diff := cmp.Diff(models.NewGroup(models.CompoundAnd), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_SingleCondition(t *testing.T) {
	tree := newTestTree()
	addCondition(t, tree, models.RootFilterID, "Status", "equals", "Done")

	want := models.NewGroup(models.CompoundAnd,
		cond("Status", models.PropertySelect, "equals", "Done"),
	)
	if diff := cmp.Diff(want, mustCompile(t, tree)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(Compile(tree))
	require.NoError(t, err)
	if string(data) != `{"and":[{"property":"Status","select":{"equals":"Done"}}]}` {
		t.Errorf("unexpected json %s", data)
	}
}

func TestCompile_NegatedRoot(t *testing.T) {
	tree := newTestTree()
	addCondition(t, tree, models.RootFilterID, "Status", "equals", "Done")
	tree.SetCompoundFilterNegation(models.RootFilterID, true)

	want := models.NewGroup(models.CompoundAnd,
		cond("Status", models.PropertySelect, "does_not_equal", "Done"),
	)
	if diff := cmp.Diff(want, mustCompile(t, tree)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_NegatedNestedGroup(t *testing.T) {
	tree := newTestTree()
	c1 := addGroup(t, tree, models.RootFilterID, models.CompoundOr, false)
	addCondition(t, tree, c1, "Status", "equals", "Done")
	addCondition(t, tree, c1, "Points", "greater_than", 3)

	plain := models.NewGroup(models.CompoundAnd,
		models.NewGroup(models.CompoundOr,
			cond("Status", models.PropertySelect, "equals", "Done"),
			cond("Points", models.PropertyNumber, "greater_than", 3),
		),
	)
	if diff := cmp.Diff(plain, mustCompile(t, tree)); diff != "" {
		t.Errorf("un-negated mismatch (-want +got):\n%s", diff)
	}

	tree.SetCompoundFilterNegation(c1, true)

	negated := models.NewGroup(models.CompoundAnd,
		models.NewGroup(models.CompoundAnd,
			cond("Status", models.PropertySelect, "does_not_equal", "Done"),
			cond("Points", models.PropertyNumber, "less_than_or_equal_to", 3),
		),
	)
	if diff := cmp.Diff(negated, mustCompile(t, tree)); diff != "" {
		t.Errorf("negated mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileFrom_DeMorgan(t *testing.T) {
	tree := newTestTree()
	g := addGroup(t, tree, models.RootFilterID, models.CompoundAnd, false)
	addCondition(t, tree, g, "Status", "equals", "Done")
	addCondition(t, tree, g, "Tags", "contains", "urgent")

	got, err := CompileFrom(tree, models.RootFilterID, true)
	require.NoError(t, err)

	want := []models.WireFilter{
		models.NewGroup(models.CompoundOr,
			cond("Status", models.PropertySelect, "does_not_equal", "Done"),
			cond("Tags", models.PropertyMultiSelect, "does_not_contain", "urgent"),
		),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_DoubleNegation(t *testing.T) {
	tree := newTestTree()
	g := addGroup(t, tree, models.RootFilterID, models.CompoundOr, false)
	addCondition(t, tree, g, "Status", "equals", "Done")
	inner := addGroup(t, tree, g, models.CompoundAnd, false)
	addCondition(t, tree, inner, "Points", "less_than", 10)
	addCondition(t, tree, inner, "Due", "on_or_after", "2024-01-01")

	before := mustCompile(t, tree)

	require.True(t, tree.ToggleCompoundFilterNegation(g))
	require.True(t, tree.ToggleCompoundFilterNegation(g))
	require.True(t, tree.ToggleCompoundFilterNegation(inner))
	require.True(t, tree.ToggleCompoundFilterNegation(inner))

	if diff := cmp.Diff(before, mustCompile(t, tree)); diff != "" {
		t.Errorf("double negation changed output (-want +got):\n%s", diff)
	}
}

// Three nested groups, each negated on its own:
//
//	root and
//	  G1 and, negated: A, G2
//	    G2 or, negated: B, G3
//	      G3 and, negated: L
//
// NOT(A and NOT(B or NOT(L))) == not A or (B or not L)
func TestCompile_ThreeLevelNegation(t *testing.T) {
	tree := newTestTree()
	g1 := addGroup(t, tree, models.RootFilterID, models.CompoundAnd, true)
	addCondition(t, tree, g1, "Status", "equals", "Done")
	g2 := addGroup(t, tree, g1, models.CompoundOr, true)
	addCondition(t, tree, g2, "Points", "greater_than", 5)
	g3 := addGroup(t, tree, g2, models.CompoundAnd, true)
	addCondition(t, tree, g3, "Name", "contains", "wip")

	want := models.NewGroup(models.CompoundAnd,
		models.NewGroup(models.CompoundOr,
			cond("Status", models.PropertySelect, "does_not_equal", "Done"),
			models.NewGroup(models.CompoundOr,
				cond("Points", models.PropertyNumber, "greater_than", 5),
				models.NewGroup(models.CompoundOr,
					cond("Name", models.PropertyTitle, "does_not_contain", "wip"),
				),
			),
		),
	)
	if diff := cmp.Diff(want, mustCompile(t, tree)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// Only the middle group is negated; its negation reaches the innermost group
// through XOR with that group's own flag.
func TestCompile_InheritedNegationXOR(t *testing.T) {
	tree := newTestTree()
	g1 := addGroup(t, tree, models.RootFilterID, models.CompoundAnd, false)
	g2 := addGroup(t, tree, g1, models.CompoundOr, true)
	g3 := addGroup(t, tree, g2, models.CompoundAnd, false)
	addCondition(t, tree, g3, "Done", "equals", true)
	g4 := addGroup(t, tree, g2, models.CompoundAnd, true)
	addCondition(t, tree, g4, "Done", "equals", true)

	want := models.NewGroup(models.CompoundAnd,
		models.NewGroup(models.CompoundAnd,
			models.NewGroup(models.CompoundAnd,
				// g3 inherits the negation
				models.NewGroup(models.CompoundOr,
					cond("Done", models.PropertyCheckbox, "does_not_equal", true),
				),
				// g4 negated under a negated parent cancels out
				models.NewGroup(models.CompoundAnd,
					cond("Done", models.PropertyCheckbox, "equals", true),
				),
			),
		),
	)
	if diff := cmp.Diff(want, mustCompile(t, tree)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_NegationUnsupported(t *testing.T) {
	tree := newTestTree()
	g := addGroup(t, tree, models.RootFilterID, models.CompoundAnd, true)
	addCondition(t, tree, g, "Name", "starts_with", "draft")

	res := Compile(tree)
	if res.OK() {
		t.Fatal("expected compile error")
	}
	if !errors.Is(res.Err, ErrNegationUnsupported) {
		t.Errorf("expected ErrNegationUnsupported, got %v", res.Err)
	}
	if res.Filter != nil {
		t.Error("expected no filter on error")
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body))
	if body["error"] != res.Error() || body["error"] == "" {
		t.Errorf("unexpected error body %s", data)
	}
}

func TestCompile_UnknownOperator(t *testing.T) {
	root := models.ToRecord(models.NewRootFilter())
	tree, err := Restore([]models.FilterNodeRecord{root})
	require.NoError(t, err)

	// stale state that bypassed the mutators
	tree.insert(&models.BaseFilter{
		NestedFilter: models.NestedFilter{ID: "stale", ParentID: models.RootFilterID, Depth: 1},
		Property:     "Points",
		Type:         models.PropertyNumber,
		Operator:     "contains",
	})

	res := Compile(tree)
	if !errors.Is(res.Err, ErrUnknownOperator) {
		t.Errorf("expected ErrUnknownOperator, got %v", res.Err)
	}
}

func TestCompile_AllNegatableOperatorsRoundTrip(t *testing.T) {
	for _, typ := range filterableTypes {
		for _, d := range OperatorsFor(typ) {
			if !d.HasNegation() {
				continue
			}

			tree := newTestTree()
			id := tree.newID()
			tree.insert(&models.BaseFilter{
				NestedFilter: models.NestedFilter{ID: id, ParentID: models.RootFilterID, Depth: 1},
				Property:     "P",
				Type:         typ,
				Operator:     d.Key,
				Value:        EmptyValue(d.ValueType),
			})
			tree.SetCompoundFilterNegation(models.RootFilterID, true)

			got := mustCompile(t, tree)
			if len(got.Children) != 1 || got.Children[0].Operator != d.Negation {
				t.Errorf("%s.%s: expected negated operator %s, got %+v", typ, d.Key, d.Negation, got)
			}
		}
	}
}
