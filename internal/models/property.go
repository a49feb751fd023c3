package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PropertyType identifies the semantic kind of a database column
type PropertyType string

const (
	PropertyTitle       PropertyType = "title"
	PropertyRichText    PropertyType = "rich_text"
	PropertyNumber      PropertyType = "number"
	PropertyCheckbox    PropertyType = "checkbox"
	PropertyDate        PropertyType = "date"
	PropertySelect      PropertyType = "select"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyStatus      PropertyType = "status"
	PropertyTimestamp   PropertyType = "timestamp"
)

// SelectOption is a select, multi-select or status option
type SelectOption struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// DateRange is the value of a date property
type DateRange struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// richText is one fragment of a title or rich_text value
type richText struct {
	PlainText string `json:"plain_text"`
}

// PropertyValue is one property of a record. The payload under the type key is
// kept raw and decoded on demand by the typed accessors.
type PropertyValue struct {
	ID   string
	Type PropertyType
	Raw  json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var id, typ string
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("invalid property id: %w", err)
		}
	}
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return fmt.Errorf("invalid property type: %w", err)
		}
	}
	if typ == "" {
		return fmt.Errorf("property has no type")
	}

	p.ID = id
	p.Type = PropertyType(typ)
	p.Raw = fields[typ]
	return nil
}

// MarshalJSON implements json.Marshaler
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	raw := p.Raw
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return json.Marshal(map[string]any{
		"id":           p.ID,
		"type":         p.Type,
		string(p.Type): raw,
	})
}

func (p PropertyValue) isNull() bool {
	return len(p.Raw) == 0 || string(p.Raw) == "null"
}

// PlainText joins the plain text of a title or rich_text value
func (p PropertyValue) PlainText() string {
	if p.isNull() {
		return ""
	}
	var fragments []richText
	if err := json.Unmarshal(p.Raw, &fragments); err != nil {
		return ""
	}
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.PlainText)
	}
	return b.String()
}

// Number returns the value of a number property
func (p PropertyValue) Number() (float64, bool) {
	if p.isNull() {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(p.Raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// Checkbox returns the value of a checkbox property
func (p PropertyValue) Checkbox() bool {
	var b bool
	_ = json.Unmarshal(p.Raw, &b)
	return b
}

// Date returns the value of a date property
func (p PropertyValue) Date() (*DateRange, bool) {
	if p.isNull() {
		return nil, false
	}
	var d DateRange
	if err := json.Unmarshal(p.Raw, &d); err != nil || d.Start == "" {
		return nil, false
	}
	return &d, true
}

// Select returns the option of a select or status property
func (p PropertyValue) Select() (*SelectOption, bool) {
	if p.isNull() {
		return nil, false
	}
	var o SelectOption
	if err := json.Unmarshal(p.Raw, &o); err != nil || o.Name == "" {
		return nil, false
	}
	return &o, true
}

// MultiSelect returns the options of a multi_select property
func (p PropertyValue) MultiSelect() []SelectOption {
	if p.isNull() {
		return nil
	}
	var opts []SelectOption
	if err := json.Unmarshal(p.Raw, &opts); err != nil {
		return nil
	}
	return opts
}

// Options returns the select options carried by the value, if any
func (p PropertyValue) Options() []SelectOption {
	switch p.Type {
	case PropertySelect, PropertyStatus:
		if o, ok := p.Select(); ok {
			return []SelectOption{*o}
		}
	case PropertyMultiSelect:
		return p.MultiSelect()
	}
	return nil
}

// Display renders the value as table cell text
func (p PropertyValue) Display() string {
	switch p.Type {
	case PropertyTitle, PropertyRichText:
		return p.PlainText()
	case PropertySelect, PropertyStatus:
		if o, ok := p.Select(); ok {
			return o.Name
		}
		return ""
	case PropertyMultiSelect:
		opts := p.MultiSelect()
		names := make([]string, len(opts))
		for i, o := range opts {
			names[i] = o.Name
		}
		return strings.Join(names, ", ")
	case PropertyNumber:
		if n, ok := p.Number(); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return ""
	case PropertyDate:
		if d, ok := p.Date(); ok {
			return formatDate(d.Start)
		}
		return ""
	case PropertyCheckbox:
		if p.Checkbox() {
			return "[x]"
		}
		return "[ ]"
	default:
		if p.isNull() {
			return ""
		}
		var s string
		if err := json.Unmarshal(p.Raw, &s); err == nil {
			return s
		}
		return string(p.Raw)
	}
}

// formatDate shortens an ISO date or datetime to its date part
func formatDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// Record is one page returned by the query service
type Record struct {
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	URL            string                   `json:"url,omitempty"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyInfo describes one column of the current schema
type PropertyInfo struct {
	Name string
	ID   string
	Type PropertyType
}

// Schema is the ordered set of properties derived from fetched records
type Schema []PropertyInfo

// Lookup finds a property by name
func (s Schema) Lookup(name string) (PropertyInfo, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyInfo{}, false
}

// Names returns the property names in schema order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Status returns the option of a status property
func (p PropertyValue) Status() (*SelectOption, bool) {
	return p.Select()
}
