package notion

import (
	"sort"

	"github.com/rebeliceyang/lazynotion/internal/models"
)

// DeriveProperties builds the schema from the record with the most
// properties. On ties the earliest record wins. The title property comes
// first, the rest are ordered by name.
func DeriveProperties(records []models.Record) models.Schema {
	if len(records) == 0 {
		return models.Schema{}
	}

	widest := records[0]
	for _, r := range records[1:] {
		if len(r.Properties) > len(widest.Properties) {
			widest = r
		}
	}

	schema := make(models.Schema, 0, len(widest.Properties))
	for name, p := range widest.Properties {
		schema = append(schema, models.PropertyInfo{Name: name, ID: p.ID, Type: p.Type})
	}

	sort.Slice(schema, func(i, j int) bool {
		ti := schema[i].Type == models.PropertyTitle
		tj := schema[j].Type == models.PropertyTitle
		if ti != tj {
			return ti
		}
		return schema[i].Name < schema[j].Name
	})

	return schema
}
