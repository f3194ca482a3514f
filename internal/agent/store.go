// Package agent synchronizes the compute agent's local configuration
// from the control plane.
package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the agent's on-disk configuration, a JSON document of named
// sections under the state directory.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) read() (map[string]map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading agent config: %w", err)
	}
	var sections map[string]map[string]any
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decoding agent config: %w", err)
	}
	if sections == nil {
		sections = map[string]map[string]any{}
	}
	return sections, nil
}

// Section returns the named section. A missing file or section yields an
// empty map.
func (s *Store) Section(name string) (map[string]any, error) {
	sections, err := s.read()
	if err != nil {
		return nil, err
	}
	section := sections[name]
	if section == nil {
		section = map[string]any{}
	}
	return section, nil
}

// UpdateSection merges values into the named section and writes the file
// back, creating it and its directory on first use.
func (s *Store) UpdateSection(name string, values map[string]any) error {
	sections, err := s.read()
	if err != nil {
		return err
	}
	section := sections[name]
	if section == nil {
		section = map[string]any{}
	}
	for key, value := range values {
		section[key] = value
	}
	sections[name] = section

	data, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding agent config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating agent state dir: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing agent config: %w", err)
	}
	return nil
}
