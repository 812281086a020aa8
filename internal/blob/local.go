package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/media"
)

// Local keeps uploads on disk under Root.
type Local struct {
	root   string
	origin media.Origin
}

// NewLocal creates the root directory if needed.
func NewLocal(root string, origin media.Origin) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{root: root, origin: origin}, nil
}

// Root returns the directory files are stored in.
func (l *Local) Root() string { return l.root }

func (l *Local) URL(key string) string { return l.origin.Join(key) }

func (l *Local) Ping(context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.root)
	}
	return nil
}

func (l *Local) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return l.URL(key), nil
}

func (l *Local) List(_ context.Context, folder string) ([]File, error) {
	folder = strings.Trim(SanitizePath(folder), "/")
	dir := filepath.Join(l.root, filepath.FromSlash(folder))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		f := File{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime().UTC()}
		f.URL = l.URL(f.Key(folder))
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	full, err := l.pathOf(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := l.pathOf(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a file; deleting a missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.pathOf(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (l *Local) pathOf(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func cleanKey(key string) (string, error) {
	clean := path.Clean(strings.Trim(SanitizePath(key), "/"))
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}

// LocalPath returns the on-disk path of key.
func (l *Local) LocalPath(key string) (string, error) {
	return l.pathOf(key)
}
