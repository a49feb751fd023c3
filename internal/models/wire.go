package models

import (
	"encoding/json"
	"fmt"
)

// WireFilter is a filter in the query service's native format. A group has a
// Combinator and Children; a condition has a Property.
//
//	{"and": [...]}
//	{"property": "Status", "select": {"equals": "Done"}}
type WireFilter struct {
	Combinator CompoundOperator
	Children   []WireFilter

	Property string
	Type     PropertyType
	Operator string
	Value    any
}

// NewGroup returns an and/or group
func NewGroup(op CompoundOperator, children ...WireFilter) WireFilter {
	if children == nil {
		children = []WireFilter{}
	}
	return WireFilter{Combinator: op, Children: children}
}

// NewCondition returns a single property condition
func NewCondition(property string, typ PropertyType, operator string, value any) WireFilter {
	return WireFilter{Property: property, Type: typ, Operator: operator, Value: value}
}

// IsGroup reports whether the filter is an and/or group
func (w WireFilter) IsGroup() bool {
	return w.Combinator != ""
}

// MarshalJSON implements json.Marshaler
func (w WireFilter) MarshalJSON() ([]byte, error) {
	if w.IsGroup() {
		children := w.Children
		if children == nil {
			children = []WireFilter{}
		}
		return json.Marshal(map[string][]WireFilter{string(w.Combinator): children})
	}

	if w.Property == "" || w.Type == "" || w.Operator == "" {
		return nil, fmt.Errorf("incomplete filter condition: property=%q type=%q operator=%q", w.Property, w.Type, w.Operator)
	}

	return json.Marshal(map[string]any{
		"property":     w.Property,
		string(w.Type): map[string]any{w.Operator: w.Value},
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (w *WireFilter) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	for _, op := range []CompoundOperator{CompoundAnd, CompoundOr} {
		raw, ok := fields[string(op)]
		if !ok {
			continue
		}
		var children []WireFilter
		if err := json.Unmarshal(raw, &children); err != nil {
			return fmt.Errorf("invalid %s group: %w", op, err)
		}
		*w = NewGroup(op, children...)
		return nil
	}

	rawProperty, ok := fields["property"]
	if !ok {
		return fmt.Errorf("filter has neither a group nor a property")
	}

	var property string
	if err := json.Unmarshal(rawProperty, &property); err != nil {
		return fmt.Errorf("invalid property name: %w", err)
	}

	for key, raw := range fields {
		if key == "property" {
			continue
		}

		var condition map[string]json.RawMessage
		if err := json.Unmarshal(raw, &condition); err != nil {
			return fmt.Errorf("invalid %s condition: %w", key, err)
		}
		if len(condition) != 1 {
			return fmt.Errorf("%s condition must have exactly one operator, got %d", key, len(condition))
		}

		for operator, rawValue := range condition {
			var value any
			if err := json.Unmarshal(rawValue, &value); err != nil {
				return fmt.Errorf("invalid value for %s.%s: %w", key, operator, err)
			}
			*w = NewCondition(property, PropertyType(key), operator, value)
		}
		return nil
	}

	return fmt.Errorf("filter on %q has no condition", property)
}
