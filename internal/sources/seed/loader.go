package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/site"
	"gopkg.in/yaml.v3"
)

// Loader reads an initial settings document from a yaml (or json) file.
//
// The file may reference {{FILE_ORIGIN}}, which is replaced by the configured
// upload origin so the same seed works across environments.
type Loader struct {
	filePath   string
	fileOrigin string
}

// NewLoader creates a seed loader.
func NewLoader(filePath, fileOrigin string) *Loader {
	return &Loader{filePath: filePath, fileOrigin: fileOrigin}
}

var templateVar = regexp.MustCompile(`\{\{\s*([A-Z_]+)\s*\}\}`)

// Load reads and parses the seed file.
func (l *Loader) Load() (site.Document, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(templateVar.FindSubmatch(m)[1])
		if name == "FILE_ORIGIN" {
			return []byte(strings.TrimSuffix(l.fileOrigin, "/"))
		}
		return nil
	})

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	if raw == nil {
		return site.Document{}, nil
	}
	return toDocument(raw)
}

// toDocument round-trips through JSON so numbers and nested maps take the
// same shapes a document loaded from storage has.
func toDocument(raw map[string]any) (site.Document, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("seed is not representable as json: %w", err)
	}
	var doc site.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return doc, nil
}

// Apply loads the seed into the store when nothing has been saved yet.
// It reports whether the store was seeded. A missing seed file is not an error.
func Apply(ctx context.Context, store *site.Store, l *Loader, log logger.Logger) (bool, error) {
	if !store.Empty() {
		return false, nil
	}

	doc, err := l.Load()
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("seed file not found, starting with empty settings", logger.String("path", l.filePath))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(doc) == 0 {
		return false, nil
	}

	if err := store.Dispatch(ctx, site.ReplaceDocument{Doc: doc}); err != nil {
		return false, fmt.Errorf("failed to seed settings: %w", err)
	}
	log.Info("settings seeded", logger.String("path", l.filePath), logger.Int("sections", len(doc)))
	return true, nil
}
