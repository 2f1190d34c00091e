package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFile is a JSON document persisted under the data directory.
// A JSONFile with an empty path keeps nothing on disk.
type JSONFile struct {
	path string
}

// NewJSONFile returns the document name inside dir. An empty dir yields an in-memory document.
func NewJSONFile(dir, name string) *JSONFile {
	if dir == "" {
		return &JSONFile{}
	}
	return &JSONFile{path: filepath.Join(dir, name)}
}

// Path returns the file location, empty for in-memory documents
func (f *JSONFile) Path() string {
	return f.path
}

// Load decodes the document into v. A missing file leaves v untouched.
func (f *JSONFile) Load(v any) error {
	if f.path == "" {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// Save writes v to the document
func (f *JSONFile) Save(v any) error {
	if f.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, f.path)
}
