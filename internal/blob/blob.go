// Package blob stores uploaded files and serves their public URLs.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

// File is one entry of a folder listing.
type File struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"modTime,omitempty"`
}

// Key returns the storage key of a file listed in folder.
func (f File) Key(folder string) string {
	folder = strings.Trim(SanitizePath(folder), "/")
	if folder == "" {
		return f.Name
	}
	return folder + "/" + f.Name
}

// Store is an upload backend. Keys are slash separated and already sanitized.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	List(ctx context.Context, folder string) ([]File, error)
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Ping(ctx context.Context) error
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._/-]`)
	dotRuns     = regexp.MustCompile(`\.{2,}`)
)

// SanitizePath makes a client supplied path safe to use as a storage key:
// unexpected characters become "_", runs of dots collapse to one and leading
// slashes are dropped.
func SanitizePath(p string) string {
	p = unsafeChars.ReplaceAllString(p, "_")
	for dotRuns.MatchString(p) {
		p = dotRuns.ReplaceAllString(p, ".")
	}
	return strings.TrimLeft(p, "/")
}

// DefaultFolder receives uploads sent without an explicit path.
const DefaultFolder = "media"

// KeyFor picks the storage key of a new upload. An explicit path wins;
// otherwise the file lands in DefaultFolder under a unique name.
func KeyFor(explicitPath, filename string) string {
	if key := strings.Trim(SanitizePath(explicitPath), "/"); key != "" {
		return key
	}
	name := path.Base(SanitizePath(filename))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return DefaultFolder + "/" + uuid.NewString() + "-" + name
}
