package site

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/media"
)

// Repository persists the whole settings document.
// Load returns an empty document when nothing has been saved yet.
type Repository interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Action is one typed mutation of the document.
type Action interface {
	Name() string
	apply(doc Document) (Document, error)
}

// Store is the application state container for the settings document.
//
// Every mutation goes through Dispatch, which applies the action to a copy,
// persists it and only then publishes it. There is no optimistic concurrency:
// concurrent administrators overwrite each other (last write wins).
type Store struct {
	mu     sync.RWMutex
	repo   Repository
	doc    Document
	logger logger.Logger

	subMu sync.RWMutex
	subs  []func(Document)
}

// NewStore creates a store backed by repo. Call Load before use.
func NewStore(repo Repository, log logger.Logger) *Store {
	return &Store{
		repo:   repo,
		doc:    Document{},
		logger: log,
	}
}

// Load (re)reads the document from the repository and notifies subscribers.
func (s *Store) Load(ctx context.Context) error {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.publish(doc)
	return nil
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Empty reports whether no settings have been saved.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc) == 0
}

// Dispatch applies an action, persists the result and publishes it.
// On any error the in-memory document is left untouched.
func (s *Store) Dispatch(ctx context.Context, a Action) error {
	s.mu.Lock()
	next, err := a.apply(s.doc.Clone())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", a.Name(), err)
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: failed to save settings: %w", a.Name(), err)
	}
	s.doc = next
	s.mu.Unlock()

	s.logger.Debug("settings updated", logger.String("action", a.Name()))
	s.publish(next)
	return nil
}

// Subscribe registers a listener called with a copy of every new document.
func (s *Store) Subscribe(fn func(Document)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) publish(doc Document) {
	s.subMu.RLock()
	subs := slices.Clone(s.subs)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(doc.Clone())
	}
}

// ─────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────

// ReplaceDocument swaps the whole document (PUT /api/site-settings).
type ReplaceDocument struct {
	Doc Document
}

func (ReplaceDocument) Name() string { return "replace_document" }

func (a ReplaceDocument) apply(Document) (Document, error) {
	return a.Doc.Clone(), nil
}

// ReplaceSection swaps one top-level field group (hero, gallery, blog...).
type ReplaceSection struct {
	Key   string
	Value any
}

func (ReplaceSection) Name() string { return "replace_section" }

func (a ReplaceSection) apply(doc Document) (Document, error) {
	if a.Key == "" {
		return nil, fmt.Errorf("%w: empty section key", ErrInvalidPointer)
	}
	if a.Value == nil {
		delete(doc, a.Key)
		return doc, nil
	}
	doc[a.Key] = cloneValue(a.Value)
	return doc, nil
}

// SetMediaField inserts a library asset URL into a content field. If the
// field holds an asset object, its URL field is updated in place.
type SetMediaField struct {
	Pointer string
	URL     string
}

func (SetMediaField) Name() string { return "set_media_field" }

func (a SetMediaField) apply(doc Document) (Document, error) {
	cur, err := Get(doc, a.Pointer)
	if err == nil {
		if obj, ok := cur.(map[string]any); ok {
			obj[urlFieldOf(obj)] = a.URL
			delete(obj, "status")
			return doc, nil
		}
	}
	// A missing leaf inside an existing container is created.
	if err := Set(doc, a.Pointer, a.URL); err != nil {
		return nil, err
	}
	return doc, nil
}

// RewriteMedia repairs an existing reference in place.
type RewriteMedia struct {
	Pointer      string
	URL          string
	ThumbnailURL string
}

func (RewriteMedia) Name() string { return "rewrite_media" }

func (a RewriteMedia) apply(doc Document) (Document, error) {
	cur, err := Get(doc, a.Pointer)
	if err != nil {
		return nil, err
	}
	obj, ok := cur.(map[string]any)
	if !ok {
		if err := Set(doc, a.Pointer, a.URL); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if a.URL != "" {
		obj[urlFieldOf(obj)] = a.URL
		if st, _ := obj["status"].(string); st != "" {
			obj["status"] = string(media.StatusOK)
		}
	}
	if a.ThumbnailURL != "" {
		obj["thumbnailUrl"] = a.ThumbnailURL
	}
	return doc, nil
}

// PurgeMedia removes references. Removed reports how many were deleted;
// pointers that no longer resolve are skipped.
type PurgeMedia struct {
	Pointers []string
	Removed  int
}

func (*PurgeMedia) Name() string { return "purge_media" }

func (a *PurgeMedia) apply(doc Document) (Document, error) {
	ptrs := slices.Clone(a.Pointers)
	slices.SortFunc(ptrs, comparePointers)
	ptrs = slices.Compact(ptrs)

	a.Removed = 0
	for _, p := range ptrs {
		if p == "" {
			continue
		}
		if err := Remove(doc, p); err != nil {
			continue
		}
		a.Removed++
	}
	return doc, nil
}

// Batch applies several actions atomically under one save.
type Batch []Action

func (Batch) Name() string { return "batch" }

func (b Batch) apply(doc Document) (Document, error) {
	var err error
	for _, a := range b {
		doc, err = a.apply(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name(), err)
		}
	}
	return doc, nil
}

func urlFieldOf(obj map[string]any) string {
	for _, f := range media.URLFields {
		if _, ok := obj[f].(string); ok {
			return f
		}
	}
	return "url"
}
