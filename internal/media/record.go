package media

import (
	"strings"
	"time"
)

// Type classifies an asset for rendering.
type Type string

const (
	TypeImage   Type = "image"
	TypeVideo   Type = "video"
	TypeUnknown Type = "unknown"
)

func (t Type) String() string { return string(t) }

// Status describes whether a stored reference can still be rendered.
type Status string

const (
	// StatusOK means the reference resolved to a fetchable URL.
	StatusOK Status = "ok"
	// StatusBroken means the reference can never resolve (ephemeral or known-bad legacy value).
	StatusBroken Status = "broken"
	// StatusNeedsFix means resolution failed but the reference is not known to be permanently broken.
	StatusNeedsFix Status = "needs_fix"
)

func (s Status) String() string { return string(s) }

// Valid reports whether s is one of the three recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusBroken, StatusNeedsFix:
		return true
	}
	return false
}

// Meta carries optional descriptive dimensions, passed through unchanged.
type Meta struct {
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Record is the canonical description of one media asset.
//
// A Record is never persisted on its own: it is a derived view over raw
// reference strings embedded in the site settings document and over the
// upload store listing.
type Record struct {
	ID           string     `json:"id"`
	Type         Type       `json:"type"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Filename     string     `json:"filename"`
	MimeType     string     `json:"mimeType,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	Meta         *Meta      `json:"meta,omitempty"`
	Status       Status     `json:"status"`

	// Raw is the unresolved reference the record was built from.
	Raw string `json:"raw,omitempty"`
	// Refs lists the settings locations (JSON pointers) referencing this asset.
	Refs []string `json:"refs,omitempty"`
}

// Selectable reports whether the record may be inserted into a content field.
func Selectable(r Record) bool {
	return r.URL != "" && r.Status != StatusBroken
}

// Origin is the file-serving origin every relative reference resolves against.
// It always ends with a slash.
type Origin string

// NewOrigin normalizes a configured origin so it ends with exactly one slash.
func NewOrigin(raw string) Origin {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return Origin(strings.TrimRight(raw, "/") + "/")
}

func (o Origin) String() string { return string(o) }

// Join appends a relative key to the origin.
func (o Origin) Join(key string) string {
	return string(o) + strings.TrimLeft(key, "/")
}

// KeyOf returns the storage key for a URL served under the origin, or "" if
// the URL lives elsewhere.
func (o Origin) KeyOf(url string) string {
	if o == "" || !strings.HasPrefix(url, string(o)) {
		return ""
	}
	return stripQuery(strings.TrimPrefix(url, string(o)))
}
