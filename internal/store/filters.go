package store

import (
	"fmt"

	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

// refreshFilterError recompiles the tree so the editor can show problems
// before the user commits
func refreshFilterError(st *State) {
	st.FilterError = filter.Compile(st.Filters).Error()
}

// mutateFilters applies a tree mutation. Mutations reporting false were
// no-ops and leave the state as it was.
func (s *Store) mutateFilters(mutate func(t *filter.Tree) bool) bool {
	changed := false
	_ = s.applyErr(func(st *State) error {
		if !mutate(st.Filters) {
			return errNoChange
		}
		changed = true
		refreshFilterError(st)
		return nil
	})
	return changed
}

// AddBaseFilter adds a condition on the first filterable property
func (s *Store) AddBaseFilter(parentID string) (string, error) {
	var id string
	err := s.applyErr(func(st *State) error {
		var err error
		id, err = st.Filters.AddBaseFilter(parentID, st.Schema)
		if err != nil {
			return err
		}
		refreshFilterError(st)
		return nil
	})
	return id, err
}

// AddCompoundFilter adds a group seeded with one condition
func (s *Store) AddCompoundFilter(parentID string) (string, error) {
	var id string
	err := s.applyErr(func(st *State) error {
		var err error
		id, err = st.Filters.AddCompoundFilter(parentID, st.Schema)
		if err != nil {
			return err
		}
		refreshFilterError(st)
		return nil
	})
	return id, err
}

// UpdateBaseFilterProperty points a condition at another property. Unknown
// or unfilterable properties are ignored.
func (s *Store) UpdateBaseFilterProperty(id, property string) bool {
	schema := s.State().Schema
	return s.mutateFilters(func(t *filter.Tree) bool {
		return t.UpdateBaseFilterProperty(id, property, schema)
	})
}

// UpdateBaseFilterOperator changes a condition's operator
func (s *Store) UpdateBaseFilterOperator(id, operator string) bool {
	return s.mutateFilters(func(t *filter.Tree) bool {
		return t.UpdateBaseFilterOperator(id, operator)
	})
}

// UpdateBaseFilterValue replaces a condition's value
func (s *Store) UpdateBaseFilterValue(id string, value any) bool {
	return s.mutateFilters(func(t *filter.Tree) bool {
		return t.UpdateBaseFilterValue(id, value)
	})
}

// UpdateCompoundFilterOperator switches a group between and/or
func (s *Store) UpdateCompoundFilterOperator(id string, op models.CompoundOperator) bool {
	return s.mutateFilters(func(t *filter.Tree) bool {
		return t.UpdateCompoundFilterOperator(id, op)
	})
}

// SetCompoundFilterNegation negates a group, when negation is enabled
func (s *Store) SetCompoundFilterNegation(id string, negated bool) error {
	if !s.enableNegation {
		return ErrNegationDisabled
	}
	if !s.mutateFilters(func(t *filter.Tree) bool {
		return t.SetCompoundFilterNegation(id, negated)
	}) {
		return fmt.Errorf("%w: %s", filter.ErrFilterNotFound, id)
	}
	return nil
}

// ToggleCompoundFilterNegation flips a group's negation, when enabled
func (s *Store) ToggleCompoundFilterNegation(id string) error {
	if !s.enableNegation {
		return ErrNegationDisabled
	}
	if !s.mutateFilters(func(t *filter.Tree) bool {
		return t.ToggleCompoundFilterNegation(id)
	}) {
		return fmt.Errorf("%w: %s", filter.ErrFilterNotFound, id)
	}
	return nil
}

// DeleteFilter removes a node and its descendants
func (s *Store) DeleteFilter(id string) bool {
	return s.mutateFilters(func(t *filter.Tree) bool {
		return t.DeleteFilter(id)
	})
}

// ClearFilters resets the tree to an empty root
func (s *Store) ClearFilters() {
	s.mutateFilters(func(t *filter.Tree) bool {
		t.Clear()
		return true
	})
}

// SetFilters installs a copy of a tree built elsewhere, such as a saved view
func (s *Store) SetFilters(tree *filter.Tree) {
	s.Apply(func(st *State) {
		st.Filters = tree.Clone()
		refreshFilterError(st)
	})
}

// CompileFilters compiles the current tree
func (s *Store) CompileFilters() filter.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Compile(s.state.Filters)
}
