package store

import (
	"github.com/rebeliceyang/lazynotion/internal/models"
)

// PropertySelectOptions returns the options offered for a select-like
// property: the cached ones followed by those seen in the current records,
// deduplicated by name with the first occurrence kept. The merged list is
// written back to the cache.
func (s *Store) PropertySelectOptions(property string) []models.SelectOption {
	st := s.State()

	prop, ok := st.Schema.Lookup(property)
	if !ok || !hasOptions(prop.Type) {
		return []models.SelectOption{}
	}

	options := s.options.Get(property)
	for _, r := range st.Records {
		v, ok := r.Properties[property]
		if !ok || v.Type != prop.Type {
			continue
		}
		options = append(options, v.Options()...)
	}

	seen := make(map[string]bool, len(options))
	unique := make([]models.SelectOption, 0, len(options))
	for _, o := range options {
		if seen[o.Name] {
			continue
		}
		seen[o.Name] = true
		unique = append(unique, o)
	}

	if err := s.options.Put(property, unique); err != nil {
		s.logger.Warn("failed to cache select options", "property", property, "error", err)
	}
	return unique
}

func (s *Store) cacheAllPropertyOptions() {
	for _, prop := range s.State().Schema {
		if hasOptions(prop.Type) {
			s.PropertySelectOptions(prop.Name)
		}
	}
}

func hasOptions(t models.PropertyType) bool {
	switch t {
	case models.PropertySelect, models.PropertyMultiSelect, models.PropertyStatus:
		return true
	}
	return false
}
