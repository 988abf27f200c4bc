// Package config persists pagepilot settings: provider endpoints, routing
// thresholds, step budgets, and the action whitelist. Sections own their
// typed view of the data; the store owns the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// storeVersion is written into every config file.
const storeVersion = "1.0"

// Store provides persistence for configuration sections.
type Store interface {
	Load() error
	Save() error
	GetSection(sectionID string) (map[string]interface{}, error)
	SetSection(sectionID string, data map[string]interface{}) error
}

// Section is a typed view over one store section.
type Section interface {
	// ID returns the section identifier used as the store key.
	ID() string

	// Data returns the section's current values for persistence.
	Data() map[string]interface{}

	// SetData replaces the section's values from persisted data. Missing
	// keys keep their defaults.
	SetData(data map[string]interface{}) error

	// Validate checks the current values for consistency.
	Validate() error
}

// FileStore implements Store using a JSON file with atomic writes.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	data    map[string]map[string]interface{}
	version string
}

// NewFileStore creates a file-backed store. An empty path defaults to
// ~/.pagepilot/config.json. A missing file is not an error.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".pagepilot", "config.json")
	}

	store := &FileStore{
		path:    path,
		data:    make(map[string]map[string]interface{}),
		version: storeVersion,
	}
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Load reads the configuration from disk.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]interface{})
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file struct {
		Version  string                            `json:"version"`
		Sections map[string]map[string]interface{} `json:"sections"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	s.version = file.Version
	s.data = file.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]interface{})
	}
	return nil
}

// Save writes the configuration to disk via a temp file rename, so a crash
// mid-write never leaves a corrupt config behind.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := struct {
		Version  string                            `json:"version"`
		Sections map[string]map[string]interface{} `json:"sections"`
	}{
		Version:  s.version,
		Sections: s.data,
	}
	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, append(encoded, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// GetSection returns a copy of one section's data.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	section, ok := s.data[sectionID]
	if !ok {
		return make(map[string]interface{}), nil
	}
	out := make(map[string]interface{}, len(section))
	for k, v := range section {
		out[k] = v
	}
	return out, nil
}

// SetSection replaces one section's data.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]interface{}, len(data))
	for k, v := range data {
		copied[k] = v
	}
	s.data[sectionID] = copied
	return nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// LoadSection hydrates a typed section from the store and validates it.
func LoadSection(store Store, section Section) error {
	data, err := store.GetSection(section.ID())
	if err != nil {
		return err
	}
	if err := section.SetData(data); err != nil {
		return fmt.Errorf("section %s: %w", section.ID(), err)
	}
	if err := section.Validate(); err != nil {
		return fmt.Errorf("section %s: %w", section.ID(), err)
	}
	return nil
}

// SaveSection validates a typed section and writes it through the store.
func SaveSection(store Store, section Section) error {
	if err := section.Validate(); err != nil {
		return fmt.Errorf("section %s: %w", section.ID(), err)
	}
	return store.SetSection(section.ID(), section.Data())
}
