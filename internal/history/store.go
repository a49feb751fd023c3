package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one fetch against a database
type Entry struct {
	ID           int
	DatabaseID   string
	Filter       string // compiled filter json
	Sorts        string // sort list json
	ExecutedAt   time.Time
	Duration     time.Duration
	RecordCount  int
	Success      bool
	ErrorMessage string
}

// Store manages fetch history persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new history store
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Create schema
	_, err = db.Exec(schemaSQL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Add records a fetch
func (s *Store) Add(entry Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO query_history
		(database_id, filter, sorts, duration_ms, record_count, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.DatabaseID,
		entry.Filter,
		entry.Sorts,
		entry.Duration.Milliseconds(),
		entry.RecordCount,
		entry.Success,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to add history entry: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, database_id, filter, sorts, executed_at,
	       duration_ms, record_count, success, error_message
	FROM query_history`

// GetRecent retrieves the most recent entries
func (s *Store) GetRecent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(selectColumns+`
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// likeEscaper makes LIKE wildcards in user text match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search finds entries whose filter or sorts contain text
func (s *Store) Search(text string, limit int) ([]Entry, error) {
	pattern := "%" + likeEscaper.Replace(text) + "%"
	rows, err := s.db.Query(selectColumns+`
		WHERE filter LIKE ? ESCAPE '\' OR sorts LIKE ? ESCAPE '\'
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Prune keeps only the newest maxEntries entries
func (s *Store) Prune(maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	res, err := s.db.Exec(`
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history
			ORDER BY executed_at DESC, id DESC
			LIMIT ?
		)`, maxEntries)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMs int64
		var executedAt string

		err := rows.Scan(
			&e.ID,
			&e.DatabaseID,
			&e.Filter,
			&e.Sorts,
			&executedAt,
			&durationMs,
			&e.RecordCount,
			&e.Success,
			&e.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.ExecutedAt = parseTimestamp(executedAt)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// parseTimestamp reads sqlite's CURRENT_TIMESTAMP, which the driver may
// hand back in either layout
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
