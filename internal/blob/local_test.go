package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/encore/internal/media"
)

const testOrigin = media.Origin("https://files.example.com/uploads/")

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), testOrigin)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return l
}

func TestLocalPutListOpen(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	url, err := l.Put(ctx, "gallery/b.png", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "https://files.example.com/uploads/gallery/b.png" {
		t.Errorf("Put() url = %q", url)
	}
	if _, err := l.Put(ctx, "gallery/a.png", "image/png", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}

	files, err := l.List(ctx, "gallery")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 2 || files[0].Name != "a.png" || files[1].Name != "b.png" {
		t.Fatalf("List() = %+v, want a.png, b.png", files)
	}
	if files[1].URL != url || files[1].Size != 9 {
		t.Errorf("List()[1] = %+v", files[1])
	}

	rc, err := l.Open(ctx, "gallery/b.png")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, _ := io.ReadAll(rc)
	if string(data) != "png-bytes" {
		t.Errorf("Open() content = %q", data)
	}
}

func TestLocalListMissingFolder(t *testing.T) {
	l := newTestLocal(t)

	files, err := l.List(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", files)
	}
}

func TestLocalExistsDelete(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if ok, _ := l.Exists(ctx, "media/x.mp4"); ok {
		t.Error("Exists() = true before Put")
	}
	if _, err := l.Put(ctx, "media/x.mp4", "video/mp4", strings.NewReader("v"), 1); err != nil {
		t.Fatal(err)
	}
	if ok, err := l.Exists(ctx, "media/x.mp4"); !ok || err != nil {
		t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
	}

	if err := l.Delete(ctx, "media/x.mp4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := l.Delete(ctx, "media/x.mp4"); err != nil {
		t.Errorf("Delete() of missing file error = %v, want nil", err)
	}
	if _, err := l.Open(ctx, "media/x.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestLocalTraversalStaysInRoot(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	url, err := l.Put(ctx, "../../escape.txt", "text/plain", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != testOrigin.String()+"escape.txt" {
		t.Errorf("Put() url = %q", url)
	}
	if ok, _ := l.Exists(ctx, "escape.txt"); !ok {
		t.Error("traversal key was not confined to the upload root")
	}
}
