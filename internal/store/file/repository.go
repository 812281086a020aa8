// Package file persists the settings document as a single JSON file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrSnakeDoc/encore/internal/site"
)

// Repository stores the document at Path. Writes go to a temp file in the
// same directory and are renamed into place.
type Repository struct {
	Path string

	mu sync.Mutex
}

func NewRepository(path string) *Repository {
	return &Repository{Path: path}
}

// Load reads the document. A missing or blank file is an empty document.
func (r *Repository) Load(_ context.Context) (site.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return site.Document{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return site.Document{}, nil
	}

	var doc site.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", r.Path, err)
	}
	if doc == nil {
		doc = site.Document{}
	}
	return doc, nil
}

// Save writes the document atomically.
func (r *Repository) Save(_ context.Context, doc site.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.Path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
