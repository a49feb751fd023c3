package filter

import (
	"github.com/rebeliceyang/lazynotion/internal/models"
)

// typeConfig lists the operators of one property type in display order
type typeConfig struct {
	defaultOperator string
	operators       []models.OperatorDescriptor
}

func desc(key, label, negation string, vt models.ValueType) models.OperatorDescriptor {
	return models.OperatorDescriptor{Key: key, Label: label, Negation: negation, ValueType: vt}
}

// noNegation marks operators that cannot appear inside a negated group
const noNegation = ""

var (
	isEmpty    = desc("is_empty", "Is empty", "is_not_empty", models.ValueAlwaysTrue)
	isNotEmpty = desc("is_not_empty", "Is not empty", "is_empty", models.ValueAlwaysTrue)

	textOperators = []models.OperatorDescriptor{
		desc("contains", "Contains", "does_not_contain", models.ValueText),
		desc("does_not_contain", "Does not contain", "contains", models.ValueText),
		desc("does_not_equal", "Is not", "equals", models.ValueText),
		desc("ends_with", "Ends with", noNegation, models.ValueText),
		desc("equals", "Is", "does_not_equal", models.ValueText),
		isEmpty,
		isNotEmpty,
		desc("starts_with", "Starts with", noNegation, models.ValueText),
	}

	selectOperators = []models.OperatorDescriptor{
		desc("equals", "Is", "does_not_equal", models.ValueSelect),
		desc("does_not_equal", "Is not", "equals", models.ValueSelect),
		isEmpty,
		isNotEmpty,
	}
)

// operatorConfig is the static property type -> operator table. A type that is
// present without operators (timestamp) is known but not filterable.
var operatorConfig = map[models.PropertyType]typeConfig{
	models.PropertyCheckbox: {
		defaultOperator: "equals",
		operators: []models.OperatorDescriptor{
			desc("equals", "Is", "does_not_equal", models.ValueSelect),
			desc("does_not_equal", "Is not", "equals", models.ValueSelect),
		},
	},
	models.PropertyDate: {
		defaultOperator: "is_not_empty",
		operators: []models.OperatorDescriptor{
			desc("after", "Is after", "on_or_before", models.ValueDate),
			desc("before", "Is before", "on_or_after", models.ValueDate),
			desc("equals", "Is", noNegation, models.ValueDate),
			isEmpty,
			isNotEmpty,
			desc("on_or_after", "Is on or after", "before", models.ValueDate),
			desc("on_or_before", "Is on or before", "after", models.ValueDate),
		},
	},
	models.PropertyMultiSelect: {
		defaultOperator: "contains",
		operators: []models.OperatorDescriptor{
			desc("contains", "Contains", "does_not_contain", models.ValueMultiSelect),
			desc("does_not_contain", "Does not contain", "contains", models.ValueMultiSelect),
			isEmpty,
			isNotEmpty,
		},
	},
	models.PropertyNumber: {
		defaultOperator: "equals",
		operators: []models.OperatorDescriptor{
			desc("does_not_equal", "≠", "equals", models.ValueNumber),
			desc("equals", "=", "does_not_equal", models.ValueNumber),
			desc("greater_than", ">", "less_than_or_equal_to", models.ValueNumber),
			desc("greater_than_or_equal_to", "≥", "less_than", models.ValueNumber),
			isEmpty,
			isNotEmpty,
			desc("less_than", "<", "greater_than_or_equal_to", models.ValueNumber),
			desc("less_than_or_equal_to", "≤", "greater_than", models.ValueNumber),
		},
	},
	models.PropertyRichText:  {defaultOperator: "contains", operators: textOperators},
	models.PropertyTitle:     {defaultOperator: "contains", operators: textOperators},
	models.PropertySelect:    {defaultOperator: "equals", operators: selectOperators},
	models.PropertyStatus:    {defaultOperator: "is_not_empty", operators: selectOperators},
	models.PropertyTimestamp: {},
}

// CheckboxOptions are the values offered for checkbox equals/does_not_equal
var CheckboxOptions = []struct {
	Label string
	Value bool
}{
	{"Checked", true},
	{"Unchecked", false},
}

// OperatorsFor returns the operators valid for a property type, in display
// order. It is empty for types that cannot be filtered.
func OperatorsFor(t models.PropertyType) []models.OperatorDescriptor {
	cfg, ok := operatorConfig[t]
	if !ok {
		return nil
	}
	ops := make([]models.OperatorDescriptor, len(cfg.operators))
	copy(ops, cfg.operators)
	return ops
}

// IsPropertyTypeSupported reports whether a property of type t can be filtered
func IsPropertyTypeSupported(t models.PropertyType) bool {
	return len(operatorConfig[t].operators) > 0
}

// DefaultOperator returns the operator a new filter on type t starts with
func DefaultOperator(t models.PropertyType) (string, bool) {
	cfg, ok := operatorConfig[t]
	if !ok || cfg.defaultOperator == "" {
		return "", false
	}
	return cfg.defaultOperator, true
}

// Descriptor looks up one operator of a property type
func Descriptor(t models.PropertyType, operator string) (models.OperatorDescriptor, bool) {
	for _, d := range operatorConfig[t].operators {
		if d.Key == operator {
			return d, true
		}
	}
	return models.OperatorDescriptor{}, false
}

// ValueTypeOf returns the value type an operator expects. ok is false when the
// (type, operator) pair is not configured, which is a configuration error.
func ValueTypeOf(t models.PropertyType, operator string) (models.ValueType, bool) {
	d, ok := Descriptor(t, operator)
	if !ok {
		return "", false
	}
	return d.ValueType, true
}

// NegatedOperator returns the operator that negates operator for type t. ok is
// false when no negated counterpart exists.
func NegatedOperator(t models.PropertyType, operator string) (string, bool) {
	d, ok := Descriptor(t, operator)
	if !ok || !d.HasNegation() {
		return "", false
	}
	return d.Negation, true
}

// EmptyValue is the value a filter is reset to when its value type changes
func EmptyValue(vt models.ValueType) any {
	switch vt {
	case models.ValueAlwaysTrue:
		return true
	case models.ValueNumber:
		return nil
	default:
		return ""
	}
}
