package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ritzau/codegraph/pkg/model"
)

// JSONStorage keeps the graph in plain JSON files:
//
//	<dir>/kb/components.json     object keyed by component ID
//	<dir>/kb/relationships.json  array in discovery order
//	<dir>/config/config.json     project info
type JSONStorage struct {
	dir string
}

// NewJSONStorage creates a JSON backend rooted at dir. Nothing is touched on
// disk until the first save.
func NewJSONStorage(dir string) *JSONStorage {
	return &JSONStorage{dir: dir}
}

func (s *JSONStorage) componentsPath() string {
	return filepath.Join(s.dir, "kb", "components.json")
}

func (s *JSONStorage) relationshipsPath() string {
	return filepath.Join(s.dir, "kb", "relationships.json")
}

func (s *JSONStorage) configPath() string {
	return filepath.Join(s.dir, "config", "config.json")
}

// LoadComponents reads components in the order they were saved.
// A missing file yields an empty result.
func (s *JSONStorage) LoadComponents() ([]*model.Component, error) {
	path := s.componentsPath()
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}

	// Decode token by token so the object's key order is kept
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, corrupt(path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, corrupt(path, fmt.Errorf("expected object, got %v", tok))
	}

	var components []*model.Component
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, corrupt(path, err)
		}
		key, _ := tok.(string)

		var c model.Component
		if err := dec.Decode(&c); err != nil {
			return nil, corrupt(path, fmt.Errorf("component %s: %w", key, err))
		}
		if c.ID != key {
			return nil, corrupt(path, fmt.Errorf("component keyed %q has id %q", key, c.ID))
		}
		if err := c.Validate(); err != nil {
			return nil, corrupt(path, err)
		}
		components = append(components, &c)
	}
	if _, err := dec.Token(); err != nil {
		return nil, corrupt(path, err)
	}

	return components, nil
}

// LoadRelationships reads relationships in their saved order.
// A missing file yields an empty result.
func (s *JSONStorage) LoadRelationships() ([]*model.Relationship, error) {
	path := s.relationshipsPath()
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}

	var relationships []*model.Relationship
	if err := json.Unmarshal(data, &relationships); err != nil {
		return nil, corrupt(path, err)
	}
	for i, r := range relationships {
		if r == nil {
			return nil, corrupt(path, fmt.Errorf("relationship %d is null", i))
		}
		if err := r.Validate(); err != nil {
			return nil, corrupt(path, err)
		}
	}
	return relationships, nil
}

// ProjectInfo reads the project info, falling back to the defaults when none
// has been saved yet
func (s *JSONStorage) ProjectInfo() (model.ProjectInfo, error) {
	path := s.configPath()
	data, err := readOptional(path)
	if err != nil {
		return model.ProjectInfo{}, err
	}
	if data == nil {
		return model.DefaultProjectInfo(), nil
	}

	var info model.ProjectInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.ProjectInfo{}, corrupt(path, err)
	}
	return info, nil
}

// SaveProjectInfo writes the project info
func (s *JSONStorage) SaveProjectInfo(info model.ProjectInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project info: %w", err)
	}
	return writeFileAtomic(s.configPath(), data)
}

// SaveComponents writes the components as an object keyed by ID, in order
func (s *JSONStorage) SaveComponents(components []*model.Component) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, c := range components {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(c.ID)
		if err != nil {
			return fmt.Errorf("failed to encode component id: %w", err)
		}
		value, err := json.MarshalIndent(c, "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode component %s: %w", c.ID, err)
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(components) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	return writeFileAtomic(s.componentsPath(), buf.Bytes())
}

// SaveRelationships writes the relationships as an array
func (s *JSONStorage) SaveRelationships(relationships []*model.Relationship) error {
	if relationships == nil {
		relationships = []*model.Relationship{}
	}
	data, err := json.MarshalIndent(relationships, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode relationships: %w", err)
	}
	return writeFileAtomic(s.relationshipsPath(), data)
}

// Close is a no-op for file storage
func (s *JSONStorage) Close() error {
	return nil
}

// readOptional returns nil data without error when the file does not exist
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
