// Package fileconfig implements the configuration store port as a single
// JSON document on disk.
package fileconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openherd/agentd/internal/port/configstore"
)

// Store persists the configuration document at a fixed path. Writes go
// through a temp file and rename so a crash never leaves a partial
// document behind.
type Store struct {
	path string
}

// New creates a file-backed configuration store.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the whole document. A missing file yields an empty document.
func (s *Store) Load(_ context.Context) (configstore.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configstore.Document{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc configstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc == nil {
		doc = configstore.Document{}
	}
	return doc, nil
}

// Save replaces the whole document atomically.
func (s *Store) Save(_ context.Context, doc configstore.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".agents-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
