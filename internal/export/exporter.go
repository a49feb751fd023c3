package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/natefinch/atomic"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

// filePerm is applied after the atomic rename, whose temp file is private
const filePerm = 0644

const timeLayout = "2006-01-02 15:04:05"

// ExportToCSV writes one row per record with a column per schema property.
// Cells hold the same text the table shows, except checkboxes which are
// written as true/false.
func ExportToCSV(schema models.Schema, records []models.Record, path string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"ID"}
	header = append(header, schema.Names()...)
	header = append(header, "Created", "Last Edited")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := make([]string, 0, len(header))
		row = append(row, r.ID)
		for _, prop := range schema {
			row = append(row, cell(r.Properties[prop.Name]))
		}
		row = append(row, formatTime(r.CreatedTime), formatTime(r.LastEditedTime))

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	return writeFile(path, buf.Bytes())
}

// ExportToJSON writes the records as returned by the query service
func ExportToJSON(records []models.Record, path string) error {
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records to JSON: %w", err)
	}

	return writeFile(path, data)
}

func cell(v models.PropertyValue) string {
	if v.Type == models.PropertyCheckbox {
		return strconv.FormatBool(v.Checkbox())
	}
	return v.Display()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func writeFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
