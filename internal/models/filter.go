package models

// RootFilterID is the id of the implicit root group of every filter tree
const RootFilterID = "root"

// ValueType is the kind of value an operator expects
type ValueType string

const (
	ValueAlwaysTrue  ValueType = "always_be_true"
	ValueDate        ValueType = "date"
	ValueSelect      ValueType = "select"
	ValueMultiSelect ValueType = "multi_select"
	ValueNumber      ValueType = "number"
	ValueText        ValueType = "text"
)

// CompoundOperator combines the children of a compound filter
type CompoundOperator string

const (
	CompoundAnd CompoundOperator = "and"
	CompoundOr  CompoundOperator = "or"
)

// Valid reports whether op is "and" or "or"
func (op CompoundOperator) Valid() bool {
	return op == CompoundAnd || op == CompoundOr
}

// Dual returns the De Morgan dual of the combinator
func (op CompoundOperator) Dual() CompoundOperator {
	if op == CompoundAnd {
		return CompoundOr
	}
	return CompoundAnd
}

// OperatorDescriptor describes one filter operator of a property type
type OperatorDescriptor struct {
	Key       string
	Label     string
	Negation  string // empty when the operator has no negated counterpart
	ValueType ValueType
}

// HasNegation reports whether the operator can be used inside a negated group
func (d OperatorDescriptor) HasNegation() bool {
	return d.Negation != ""
}

// FilterKind discriminates the two filter node variants
type FilterKind string

const (
	KindBase     FilterKind = "base"
	KindCompound FilterKind = "compound"
)

// FilterNode is either a *BaseFilter or a *CompoundFilter
type FilterNode interface {
	Kind() FilterKind
	NodeID() string
	Parent() string
	NodeDepth() int
}

// NestedFilter holds the fields shared by every node
type NestedFilter struct {
	ID       string
	ParentID string // empty only for the root
	Depth    int
}

func (n NestedFilter) NodeID() string { return n.ID }
func (n NestedFilter) Parent() string { return n.ParentID }
func (n NestedFilter) NodeDepth() int { return n.Depth }

// BaseFilter tests a single property with one operator and value
type BaseFilter struct {
	NestedFilter
	Property string
	Type     PropertyType
	Operator string
	Value    any
}

// Kind implements FilterNode
func (*BaseFilter) Kind() FilterKind { return KindBase }

// CompoundFilter combines its children with and/or, optionally negated
type CompoundFilter struct {
	NestedFilter
	Operator  CompoundOperator
	IsNegated bool
}

// Kind implements FilterNode
func (*CompoundFilter) Kind() FilterKind { return KindCompound }

// NewRootFilter returns the root group in its initial state
func NewRootFilter() *CompoundFilter {
	return &CompoundFilter{
		NestedFilter: NestedFilter{ID: RootFilterID},
		Operator:     CompoundAnd,
	}
}

// FilterNodeRecord is the flat, serialisable form of a filter node
type FilterNodeRecord struct {
	ID         string           `yaml:"id" json:"id"`
	ParentID   string           `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
	Depth      int              `yaml:"depth" json:"depth"`
	Kind       FilterKind       `yaml:"kind" json:"kind"`
	Property   string           `yaml:"property,omitempty" json:"property,omitempty"`
	Type       PropertyType     `yaml:"type,omitempty" json:"type,omitempty"`
	Operator   string           `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value      any              `yaml:"value" json:"value"`
	Combinator CompoundOperator `yaml:"combinator,omitempty" json:"combinator,omitempty"`
	IsNegated  bool             `yaml:"negated,omitempty" json:"negated,omitempty"`
}

// ToRecord flattens a node
func ToRecord(n FilterNode) FilterNodeRecord {
	switch f := n.(type) {
	case *BaseFilter:
		return FilterNodeRecord{
			ID:       f.ID,
			ParentID: f.ParentID,
			Depth:    f.Depth,
			Kind:     KindBase,
			Property: f.Property,
			Type:     f.Type,
			Operator: f.Operator,
			Value:    f.Value,
		}
	case *CompoundFilter:
		return FilterNodeRecord{
			ID:         f.ID,
			ParentID:   f.ParentID,
			Depth:      f.Depth,
			Kind:       KindCompound,
			Combinator: f.Operator,
			IsNegated:  f.IsNegated,
		}
	}
	return FilterNodeRecord{}
}

// ToNode converts a record back to its node variant. It returns nil for an
// unknown kind.
func (r FilterNodeRecord) ToNode() FilterNode {
	nested := NestedFilter{ID: r.ID, ParentID: r.ParentID, Depth: r.Depth}
	switch r.Kind {
	case KindBase:
		return &BaseFilter{
			NestedFilter: nested,
			Property:     r.Property,
			Type:         r.Type,
			Operator:     r.Operator,
			Value:        r.Value,
		}
	case KindCompound:
		return &CompoundFilter{
			NestedFilter: nested,
			Operator:     r.Combinator,
			IsNegated:    r.IsNegated,
		}
	}
	return nil
}
