package optioncache

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Cache persists the select options seen for each property across sessions
type Cache interface {
	// Get returns the cached options. Missing or unreadable entries are empty.
	Get(property string) []models.SelectOption
	// Put replaces the cached options; the last write wins
	Put(property string, options []models.SelectOption) error
}

// Key returns the storage key for a property
func Key(property string) string {
	return property + "-options"
}

func decode(value string) []models.SelectOption {
	var options []models.SelectOption
	if err := json.Unmarshal([]byte(value), &options); err != nil {
		return []models.SelectOption{}
	}
	if options == nil {
		return []models.SelectOption{}
	}
	return options
}

func encode(options []models.SelectOption) (string, error) {
	if options == nil {
		options = []models.SelectOption{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Store is a Cache backed by a sqlite key/value table
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the cache database at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(schemaSQL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get implements Cache
func (s *Store) Get(property string) []models.SelectOption {
	var value string
	err := s.db.QueryRow(`SELECT value FROM option_cache WHERE key = ?`, Key(property)).Scan(&value)
	if err != nil {
		return []models.SelectOption{}
	}
	return decode(value)
}

// Put implements Cache
func (s *Store) Put(property string, options []models.SelectOption) error {
	value, err := encode(options)
	if err != nil {
		return fmt.Errorf("failed to encode options for %s: %w", property, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO option_cache (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)`,
		Key(property), value,
	)
	if err != nil {
		return fmt.Errorf("failed to cache options for %s: %w", property, err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Memory is an in-process Cache, used when no cache file is configured
type Memory struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Get implements Cache
func (m *Memory) Get(property string) []models.SelectOption {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.entries[Key(property)]
	if !ok {
		return []models.SelectOption{}
	}
	return decode(value)
}

// Put implements Cache
func (m *Memory) Put(property string, options []models.SelectOption) error {
	value, err := encode(options)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(property)] = value
	return nil
}
