package models

// SortDirection is the order of a sort entry
type SortDirection string

const (
	Ascending  SortDirection = "ascending"
	Descending SortDirection = "descending"
)

// Toggle returns the opposite direction
func (d SortDirection) Toggle() SortDirection {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// SortEntry sorts by one property. Earlier entries take precedence.
type SortEntry struct {
	Property  string        `json:"property" yaml:"property"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// MoveSort moves the entry at index from to index to and returns a new list.
// All other entries keep their relative order. Out of range indexes return an
// unchanged copy.
func MoveSort(sorts []SortEntry, from, to int) []SortEntry {
	moved := make([]SortEntry, len(sorts))
	copy(moved, sorts)

	if from < 0 || from >= len(sorts) || to < 0 || to >= len(sorts) || from == to {
		return moved
	}

	entry := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]SortEntry{entry}, moved[to:]...)...)
	return moved
}

// HasSort reports whether the list already sorts by property
func HasSort(sorts []SortEntry, property string) bool {
	for _, s := range sorts {
		if s.Property == property {
			return true
		}
	}
	return false
}
