package filter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

func TestBuildWhere_Empty(t *testing.T) {
	b := NewBuilder("")

	for _, f := range []*models.WireFilter{nil, {Combinator: models.CompoundAnd}} {
		clause, args, err := b.BuildWhere(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if clause != "" || args != nil {
			t.Errorf("expected no clause, got %q %v", clause, args)
		}
	}
}

func TestBuildWhere_Condition(t *testing.T) {
	b := NewBuilder("props")
	f := models.NewGroup(models.CompoundAnd,
		models.NewCondition("Status", models.PropertySelect, "equals", "Done"),
	)

	clause, args, err := b.BuildWhere(&f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "WHERE ((props->$1::text->'select'->>'name') = $2::text)"
	if clause != want {
		t.Errorf("expected %q, got %q", want, clause)
	}
	if diff := cmp.Diff([]any{"Status", "Done"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWhere_NestedParams(t *testing.T) {
	b := NewBuilder("")
	f := models.NewGroup(models.CompoundAnd,
		models.NewCondition("Points", models.PropertyNumber, "greater_than", 3),
		models.NewGroup(models.CompoundOr,
			models.NewCondition("Tags", models.PropertyMultiSelect, "contains", "urgent"),
			models.NewCondition("Due", models.PropertyDate, "is_empty", true),
		),
	)

	clause, args, err := b.BuildWhere(&f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, part := range []string{
		"(properties->$1::text->>'number')::numeric > $2::numeric",
		"EXISTS (SELECT 1 FROM jsonb_array_elements(coalesce(properties->$3::text->'multi_select', '[]'::jsonb)) e WHERE e->>'name' = $4)",
		"left(properties->$5::text->'date'->>'start', 10)::date IS NULL",
		" OR ",
		" AND ",
	} {
		if !strings.Contains(clause, part) {
			t.Errorf("expected clause to contain %q, got %s", part, clause)
		}
	}

	want := []any{"Points", 3, "Tags", "urgent", "Due"}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWhere_TextOperators(t *testing.T) {
	b := NewBuilder("")
	tests := map[string]string{
		"contains":         "ILIKE '%' || $2 || '%'",
		"does_not_contain": "NOT ILIKE '%' || $2 || '%'",
		"starts_with":      "ILIKE $2 || '%'",
		"ends_with":        "ILIKE '%' || $2",
		"is_empty":         "= ''",
		"is_not_empty":     "NOT (",
	}

	for operator, want := range tests {
		f := models.NewCondition("Name", models.PropertyTitle, operator, "x")
		clause, _, err := b.BuildWhere(&f)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", operator, err)
			continue
		}
		if !strings.Contains(clause, want) {
			t.Errorf("%s: expected %q in %s", operator, want, clause)
		}
	}
}

func TestBuildWhere_Unsupported(t *testing.T) {
	b := NewBuilder("")

	f := models.NewCondition("Created", models.PropertyTimestamp, "equals", "x")
	if _, _, err := b.BuildWhere(&f); err == nil {
		t.Error("expected error for unsupported type")
	}

	f = models.NewCondition("Points", models.PropertyNumber, "between", 1)
	if _, _, err := b.BuildWhere(&f); err == nil {
		t.Error("expected error for unsupported operator")
	}
}

func TestBuildOrderBy(t *testing.T) {
	b := NewBuilder("")
	schema := models.Schema{{Name: "Points", Type: models.PropertyNumber}}
	sorts := []models.SortEntry{
		{Property: "Points", Direction: models.Descending},
		{Property: "Unknown", Direction: models.Ascending},
	}

	clause, args := b.BuildOrderBy(sorts, schema, 3)

	want := "ORDER BY (properties->$3::text->>'number')::numeric DESC NULLS LAST, (properties->$4::text)::text ASC NULLS LAST"
	if clause != want {
		t.Errorf("expected %q, got %q", want, clause)
	}
	if diff := cmp.Diff([]any{"Points", "Unknown"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	if clause, args := b.BuildOrderBy(nil, schema, 1); clause != "" || args != nil {
		t.Errorf("expected no clause, got %q %v", clause, args)
	}
}
