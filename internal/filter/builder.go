package filter

import (
	"fmt"
	"strings"

	"github.com/rebeliceyang/lazynotion/internal/models"
)

// Builder generates Postgres WHERE and ORDER BY clauses from wire filters.
// Records are expected in a jsonb column holding the service's property
// objects, keyed by property name.
type Builder struct {
	column string
}

// NewBuilder creates a builder over the given jsonb column
func NewBuilder(column string) *Builder {
	if column == "" {
		column = "properties"
	}
	return &Builder{column: column}
}

// BuildWhere generates a WHERE clause from a wire filter. A nil filter or an
// empty top-level group yields no clause.
func (b *Builder) BuildWhere(filter *models.WireFilter) (string, []any, error) {
	if filter == nil || (filter.IsGroup() && len(filter.Children) == 0) {
		return "", nil, nil
	}

	clause, args, err := b.build(*filter, 1)
	if err != nil {
		return "", nil, err
	}
	if clause == "" {
		return "", nil, nil
	}

	return "WHERE " + clause, args, nil
}

func (b *Builder) build(f models.WireFilter, paramIndex int) (string, []any, error) {
	if f.IsGroup() {
		return b.buildGroup(f, paramIndex)
	}
	return b.buildCondition(f, paramIndex)
}

// buildGroup recursively builds an and/or group
func (b *Builder) buildGroup(group models.WireFilter, paramIndex int) (string, []any, error) {
	var clauses []string
	var args []any
	currentParam := paramIndex

	for _, child := range group.Children {
		clause, childArgs, err := b.build(child, currentParam)
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, "("+clause+")")
		args = append(args, childArgs...)
		currentParam += len(childArgs)
	}

	if len(clauses) == 0 {
		// an empty and matches everything, an empty or matches nothing
		if group.Combinator == models.CompoundOr {
			return "FALSE", nil, nil
		}
		return "TRUE", nil, nil
	}

	logic := strings.ToUpper(string(group.Combinator))
	return strings.Join(clauses, " "+logic+" "), args, nil
}

// buildCondition builds a single property condition. The property name is
// always passed as the first parameter.
func (b *Builder) buildCondition(cond models.WireFilter, paramIndex int) (string, []any, error) {
	expr, err := b.valueExpr(cond.Type, paramIndex)
	if err != nil {
		return "", nil, err
	}
	args := []any{cond.Property}
	valueParam := fmt.Sprintf("$%d", paramIndex+1)

	switch cond.Operator {
	case "is_empty":
		return b.emptyCheck(cond.Type, expr, true), args, nil
	case "is_not_empty":
		return b.emptyCheck(cond.Type, expr, false), args, nil
	}

	if cond.Type == models.PropertyMultiSelect {
		exists := fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) e WHERE e->>'name' = %s)", expr, valueParam)
		switch cond.Operator {
		case "contains":
			return exists, append(args, cond.Value), nil
		case "does_not_contain":
			return "NOT " + exists, append(args, cond.Value), nil
		}
		return "", nil, fmt.Errorf("unsupported operator: %s %s", cond.Type, cond.Operator)
	}

	value := cond.Value
	switch cond.Operator {
	case "equals":
		return fmt.Sprintf("%s = %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	case "does_not_equal":
		return fmt.Sprintf("%s IS DISTINCT FROM %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	case "contains":
		return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", expr, valueParam), append(args, value), nil
	case "does_not_contain":
		return fmt.Sprintf("%s NOT ILIKE '%%' || %s || '%%'", expr, valueParam), append(args, value), nil
	case "starts_with":
		return fmt.Sprintf("%s ILIKE %s || '%%'", expr, valueParam), append(args, value), nil
	case "ends_with":
		return fmt.Sprintf("%s ILIKE '%%' || %s", expr, valueParam), append(args, value), nil
	case "greater_than", "after":
		return fmt.Sprintf("%s > %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	case "greater_than_or_equal_to", "on_or_after":
		return fmt.Sprintf("%s >= %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	case "less_than", "before":
		return fmt.Sprintf("%s < %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	case "less_than_or_equal_to", "on_or_before":
		return fmt.Sprintf("%s <= %s", expr, b.cast(cond.Type, valueParam)), append(args, value), nil
	default:
		return "", nil, fmt.Errorf("unsupported operator: %s %s", cond.Type, cond.Operator)
	}
}

// valueExpr returns the SQL expression reading a property of type t, with
// the property name bound to $paramIndex
func (b *Builder) valueExpr(t models.PropertyType, paramIndex int) (string, error) {
	prop := fmt.Sprintf("%s->$%d::text", b.column, paramIndex)

	switch t {
	case models.PropertyTitle, models.PropertyRichText:
		return fmt.Sprintf("coalesce((SELECT string_agg(e->>'plain_text', '') FROM jsonb_array_elements(coalesce(%s->'%s', '[]'::jsonb)) e), '')", prop, t), nil
	case models.PropertyNumber:
		return fmt.Sprintf("(%s->>'number')::numeric", prop), nil
	case models.PropertyCheckbox:
		return fmt.Sprintf("coalesce((%s->>'checkbox')::boolean, false)", prop), nil
	case models.PropertyDate:
		return fmt.Sprintf("left(%s->'date'->>'start', 10)::date", prop), nil
	case models.PropertySelect, models.PropertyStatus:
		return fmt.Sprintf("(%s->'%s'->>'name')", prop, t), nil
	case models.PropertyMultiSelect:
		return fmt.Sprintf("coalesce(%s->'multi_select', '[]'::jsonb)", prop), nil
	default:
		return "", fmt.Errorf("unsupported property type: %s", t)
	}
}

func (b *Builder) cast(t models.PropertyType, param string) string {
	switch t {
	case models.PropertyNumber:
		return param + "::numeric"
	case models.PropertyCheckbox:
		return param + "::boolean"
	case models.PropertyDate:
		return param + "::date"
	default:
		return param + "::text"
	}
}

func (b *Builder) emptyCheck(t models.PropertyType, expr string, empty bool) string {
	var clause string
	switch t {
	case models.PropertyTitle, models.PropertyRichText:
		clause = expr + " = ''"
	case models.PropertyMultiSelect:
		clause = fmt.Sprintf("jsonb_array_length(%s) = 0", expr)
	default:
		clause = expr + " IS NULL"
	}
	if empty {
		return clause
	}
	return "NOT (" + clause + ")"
}

// BuildOrderBy generates an ORDER BY clause for the sort list, numbering its
// parameters from paramIndex. Properties missing from schema sort by their
// raw json text.
func (b *Builder) BuildOrderBy(sorts []models.SortEntry, schema models.Schema, paramIndex int) (string, []any) {
	if len(sorts) == 0 {
		return "", nil
	}

	var terms []string
	var args []any
	currentParam := paramIndex

	for _, s := range sorts {
		expr := fmt.Sprintf("(%s->$%d::text)::text", b.column, currentParam)
		if prop, ok := schema.Lookup(s.Property); ok && prop.Type != models.PropertyMultiSelect {
			if e, err := b.valueExpr(prop.Type, currentParam); err == nil {
				expr = e
			}
		}
		dir := "ASC"
		if s.Direction == models.Descending {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s %s NULLS LAST", expr, dir))
		args = append(args, s.Property)
		currentParam++
	}

	return "ORDER BY " + strings.Join(terms, ", "), args
}
