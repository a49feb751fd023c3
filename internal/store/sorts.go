package store

import (
	"fmt"

	"github.com/rebeliceyang/lazynotion/internal/models"
)

// SetSorts replaces the sort list. Every other sort action goes through it.
func (s *Store) SetSorts(sorts []models.SortEntry) {
	s.Apply(func(st *State) {
		st.Sorts = append([]models.SortEntry(nil), sorts...)
	})
}

// AddSort appends an ascending sort on property
func (s *Store) AddSort(property string) error {
	sorts := s.State().Sorts
	if models.HasSort(sorts, property) {
		return fmt.Errorf("%w: %s", ErrDuplicateSort, property)
	}
	s.SetSorts(append(sorts, models.SortEntry{Property: property, Direction: models.Ascending}))
	return nil
}

// RemoveSort removes the sort at index i
func (s *Store) RemoveSort(i int) error {
	sorts := s.State().Sorts
	if i < 0 || i >= len(sorts) {
		return fmt.Errorf("%w: %d", ErrSortIndex, i)
	}
	s.SetSorts(append(sorts[:i], sorts[i+1:]...))
	return nil
}

// MoveSort moves the sort at from to to
func (s *Store) MoveSort(from, to int) error {
	sorts := s.State().Sorts
	if from < 0 || from >= len(sorts) || to < 0 || to >= len(sorts) {
		return fmt.Errorf("%w: %d -> %d", ErrSortIndex, from, to)
	}
	s.SetSorts(models.MoveSort(sorts, from, to))
	return nil
}

// ToggleSortDirection flips the direction of the sort at index i
func (s *Store) ToggleSortDirection(i int) error {
	sorts := s.State().Sorts
	if i < 0 || i >= len(sorts) {
		return fmt.Errorf("%w: %d", ErrSortIndex, i)
	}
	sorts[i].Direction = sorts[i].Direction.Toggle()
	s.SetSorts(sorts)
	return nil
}
