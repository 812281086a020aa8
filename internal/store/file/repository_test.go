package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/encore/internal/site"
)

func TestLoadMissingFile(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "nope", "settings.json"))

	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("Load() = %v, want empty document", doc)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "settings.json")
	repo := NewRepository(path)
	ctx := context.Background()

	in := site.Document{
		"hero": map[string]any{"image": "uploads/party.png"},
		"faq":  []any{map[string]any{"q": "Can I bring friends?", "a": "Yes"}},
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := site.Get(out, "/hero/image"); v != "uploads/party.png" {
		t.Errorf("/hero/image = %v", v)
	}
	if v, _ := site.Get(out, "/faq/0/a"); v != "Yes" {
		t.Errorf("/faq/0/a = %v", v)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("settings dir has %d entries, want only the settings file", len(entries))
	}
}

func TestLoadBlankAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	blank := filepath.Join(dir, "blank.json")
	if err := os.WriteFile(blank, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := NewRepository(blank).Load(ctx)
	if err != nil || len(doc) != 0 {
		t.Errorf("Load(blank) = %v, %v; want empty, nil", doc, err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRepository(corrupt).Load(ctx); err == nil {
		t.Error("Load(corrupt) error = nil, want parse error")
	}
}
