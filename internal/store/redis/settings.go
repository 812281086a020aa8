package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/redis/go-redis/v9"
)

// SettingsRepository stores the settings document as one JSON value.
// The previously saved version is kept so an operator can recover from a
// bad overwrite.
type SettingsRepository struct {
	client redis.Cmdable
}

// NewSettingsRepository creates a repository on top of an existing client.
func NewSettingsRepository(client redis.Cmdable) *SettingsRepository {
	return &SettingsRepository{client: client}
}

// Load returns the current document, or an empty one if none was saved.
func (s *SettingsRepository) Load(ctx context.Context) (site.Document, error) {
	return s.get(ctx, KeySettingsCurrent)
}

// Previous returns the document replaced by the last save.
func (s *SettingsRepository) Previous(ctx context.Context) (site.Document, error) {
	return s.get(ctx, KeySettingsPrevious)
}

// Save replaces the current document and moves the old one to the previous key.
func (s *SettingsRepository) Save(ctx context.Context, doc site.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	old, err := s.client.Get(ctx, KeySettingsCurrent).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read current settings: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(old) > 0 {
		pipe.Set(ctx, KeySettingsPrevious, old, 0)
	}
	pipe.Set(ctx, KeySettingsCurrent, data, 0)
	pipe.Set(ctx, KeySettingsUpdatedAt, time.Now().Unix(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *SettingsRepository) get(ctx context.Context, key string) (site.Document, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return site.Document{}, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var doc site.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	if doc == nil {
		doc = site.Document{}
	}
	return doc, nil
}
