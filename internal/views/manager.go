package views

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"gopkg.in/yaml.v3"
)

// FileName is the views file inside the config directory
const FileName = "views.yaml"

// View is a named filter tree and sort list for one database
type View struct {
	ID          string                    `yaml:"id"`
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description,omitempty"`
	Database    string                    `yaml:"database,omitempty"`
	Filters     []models.FilterNodeRecord `yaml:"filters"`
	Sorts       []models.SortEntry        `yaml:"sorts,omitempty"`
	CreatedAt   time.Time                 `yaml:"created_at"`
	UpdatedAt   time.Time                 `yaml:"updated_at"`
	UsageCount  int                       `yaml:"usage_count"`
	LastUsed    time.Time                 `yaml:"last_used,omitempty"`
}

// Tree rebuilds the view's filter tree, validating every node
func (v View) Tree(opts ...filter.Option) (*filter.Tree, error) {
	tree, err := filter.Restore(v.Filters, opts...)
	if err != nil {
		return nil, fmt.Errorf("view '%s' has an invalid filter: %w", v.Name, err)
	}
	return tree, nil
}

// Manager manages saved views
type Manager struct {
	path  string
	views []View
}

// NewManager creates a new views manager
func NewManager(configDir string) (*Manager, error) {
	path := filepath.Join(configDir, FileName)

	m := &Manager{
		path:  path,
		views: []View{},
	}

	if _, err := os.Stat(path); err == nil {
		if err := m.Load(); err != nil {
			return nil, fmt.Errorf("failed to load views: %w", err)
		}
	}

	return m, nil
}

// Load loads views from the YAML file
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read views file: %w", err)
	}

	var views []View
	if err := yaml.Unmarshal(data, &views); err != nil {
		return fmt.Errorf("failed to parse views: %w", err)
	}
	if views == nil {
		views = []View{}
	}
	m.views = views
	return nil
}

// Save writes views to the YAML file, replacing it atomically
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.views)
	if err != nil {
		return fmt.Errorf("failed to marshal views: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomic.WriteFile(m.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write views file: %w", err)
	}
	return nil
}

func (m *Manager) checkName(id, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("view name cannot be empty")
	}
	for _, v := range m.views {
		if v.ID != id && strings.EqualFold(v.Name, name) {
			return "", fmt.Errorf("a view with the name '%s' already exists (names are case-insensitive)", name)
		}
	}
	return name, nil
}

// Add saves the given filter tree and sorts under a new name
func (m *Manager) Add(name, description, database string, tree *filter.Tree, sorts []models.SortEntry) (*View, error) {
	name, err := m.checkName("", name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	view := View{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Database:    database,
		Filters:     tree.Snapshot(),
		Sorts:       append([]models.SortEntry(nil), sorts...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.views = append(m.views, view)

	if err := m.Save(); err != nil {
		return nil, fmt.Errorf("failed to save view: %w", err)
	}

	return &view, nil
}

// Update renames a view and replaces its filters and sorts
func (m *Manager) Update(id, name, description string, tree *filter.Tree, sorts []models.SortEntry) error {
	name, err := m.checkName(id, name)
	if err != nil {
		return err
	}

	for i, v := range m.views {
		if v.ID == id {
			m.views[i].Name = name
			m.views[i].Description = strings.TrimSpace(description)
			m.views[i].Filters = tree.Snapshot()
			m.views[i].Sorts = append([]models.SortEntry(nil), sorts...)
			m.views[i].UpdatedAt = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save view: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("view with ID '%s' was not found", id)
}

// Delete deletes a view by ID
func (m *Manager) Delete(id string) error {
	for i, v := range m.views {
		if v.ID == id {
			m.views = append(m.views[:i], m.views[i+1:]...)
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save views after deletion: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("view with ID '%s' was not found", id)
}

// Get returns a view by ID
func (m *Manager) Get(id string) (*View, error) {
	for _, v := range m.views {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("view with ID '%s' was not found", id)
}

// GetAll returns all views
func (m *Manager) GetAll() []View {
	return m.views
}

// ForDatabase returns the views saved for a database, plus those saved
// without one
func (m *Manager) ForDatabase(database string) []View {
	var results []View
	for _, v := range m.views {
		if v.Database == "" || v.Database == database {
			results = append(results, v)
		}
	}
	return results
}

// Search searches views by name, description, or filtered property
func (m *Manager) Search(query string) []View {
	if query == "" {
		return m.views
	}

	query = strings.ToLower(query)
	var results []View

	for _, v := range m.views {
		if strings.Contains(strings.ToLower(v.Name), query) ||
			strings.Contains(strings.ToLower(v.Description), query) {
			results = append(results, v)
			continue
		}

		for _, f := range v.Filters {
			if f.Property != "" && strings.Contains(strings.ToLower(f.Property), query) {
				results = append(results, v)
				break
			}
		}
	}

	return results
}

// RecordUsage updates usage statistics for a view
func (m *Manager) RecordUsage(id string) error {
	for i, v := range m.views {
		if v.ID == id {
			m.views[i].UsageCount++
			m.views[i].LastUsed = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save usage statistics: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("view with ID '%s' was not found", id)
}

// GetMostUsed returns the most frequently used views
func (m *Manager) GetMostUsed(limit int) []View {
	sorted := make([]View, len(m.views))
	copy(sorted, m.views)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UsageCount > sorted[j].UsageCount
	})

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	return sorted
}
