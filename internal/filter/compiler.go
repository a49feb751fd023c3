package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rebeliceyang/lazynotion/internal/models"
)

var (
	// ErrNegationUnsupported is returned when a condition inside a negated
	// group uses an operator that has no negated counterpart
	ErrNegationUnsupported = errors.New("operator cannot be negated")

	// ErrUnknownOperator is returned for a (type, operator) pair missing from
	// the operator table, which only happens with stale or hand-edited state
	ErrUnknownOperator = errors.New("unknown operator for property type")
)

// Result is the outcome of compiling a tree. Exactly one of Filter and Err is
// set.
type Result struct {
	Filter *models.WireFilter
	Err    error
}

// OK reports whether compilation succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Error returns the error message, or "" on success
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON encodes the filter, or {"error": msg} when compilation failed
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]string{"error": r.Err.Error()})
	}
	if r.Filter == nil {
		return json.Marshal(models.NewGroup(models.CompoundAnd))
	}
	return json.Marshal(r.Filter)
}

// Compile converts the whole tree into a wire filter. Negation errors are
// returned in the result, never panicked or thrown past this call.
func Compile(t *Tree) Result {
	items, err := CompileFrom(t, "", false)
	if err != nil {
		return Result{Err: err}
	}
	if len(items) == 0 {
		empty := models.NewGroup(models.CompoundAnd)
		return Result{Filter: &empty}
	}
	return Result{Filter: &items[0]}
}

// CompileFrom compiles the children of parentID with the given inherited
// negation. An empty parentID starts at the top level, where the root keeps
// its combinator and its own negation flag is applied to its children as is.
// Deeper down a group's negation is its own flag XOR the inherited one; a
// negated group emits the dual combinator and negates every child.
func CompileFrom(t *Tree, parentID string, negated bool) ([]models.WireFilter, error) {
	children := t.Children(parentID)
	items := make([]models.WireFilter, 0, len(children))

	for _, child := range children {
		switch n := child.(type) {
		case *models.BaseFilter:
			item, err := compileCondition(n, negated)
			if err != nil {
				return nil, err
			}
			items = append(items, item)

		case *models.CompoundFilter:
			combinator := n.Operator
			childNegated := n.IsNegated
			if parentID == "" {
				if negated {
					combinator = combinator.Dual()
				}
			} else {
				childNegated = n.IsNegated != negated
				if childNegated {
					combinator = combinator.Dual()
				}
			}

			sub, err := CompileFrom(t, n.ID, childNegated)
			if err != nil {
				return nil, err
			}
			items = append(items, models.NewGroup(combinator, sub...))
		}
	}

	return items, nil
}

func compileCondition(f *models.BaseFilter, negated bool) (models.WireFilter, error) {
	if _, ok := ValueTypeOf(f.Type, f.Operator); !ok {
		return models.WireFilter{}, fmt.Errorf("%w: %s %q on %q", ErrUnknownOperator, f.Type, f.Operator, f.Property)
	}

	operator := f.Operator
	if negated {
		neg, ok := NegatedOperator(f.Type, f.Operator)
		if !ok {
			d, _ := Descriptor(f.Type, f.Operator)
			return models.WireFilter{}, fmt.Errorf("%w: %q (%s) on %q", ErrNegationUnsupported, d.Label, f.Type, f.Property)
		}
		operator = neg
	}

	return models.NewCondition(f.Property, f.Type, operator, f.Value), nil
}
