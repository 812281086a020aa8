package media

import (
	"path"
	"regexp"
	"strings"
)

const (
	// EphemeralScheme marks in-browser object references that never survive a reload.
	EphemeralScheme = "blob:"
	// UploadPrefix is the path every uploaded file is served under.
	UploadPrefix = "uploads/"
)

var (
	imageExt = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|svg|avif|bmp)$`)
	videoExt = regexp.MustCompile(`(?i)\.(mp4|mov|m4v|webm|ogg)$`)
)

// IsEphemeral reports whether raw is an ephemeral object reference.
func IsEphemeral(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), EphemeralScheme)
}

// IsAbsolute reports whether raw is an absolute http(s) URL.
func IsAbsolute(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ResolveURL turns a stored reference into the URL a browser can fetch.
// Rules, in order:
//   - "" -> "" (unresolved)
//   - "blob:..." -> "" (cannot be resolved after reload)
//   - "http(s)://..." -> unchanged
//   - "uploads/x" or "/uploads/x" -> origin + "x"
//   - anything else -> origin + value (bare filename)
func ResolveURL(raw string, origin Origin) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || IsEphemeral(raw) {
		return ""
	}
	if IsAbsolute(raw) {
		return raw
	}
	if origin == "" {
		return ""
	}

	rel := strings.TrimLeft(raw, "/")
	if strings.HasPrefix(rel, UploadPrefix) {
		rel = strings.TrimLeft(strings.TrimPrefix(rel, UploadPrefix), "/")
	}
	if rel == "" {
		return ""
	}
	return origin.Join(rel)
}

// InferType classifies a reference. An explicit MIME type wins over the
// extension; matching ignores case, query strings and fragments.
func InferType(mime, ref string) Type {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return TypeImage
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	}

	clean := stripQuery(strings.TrimSpace(ref))
	switch {
	case imageExt.MatchString(clean):
		return TypeImage
	case videoExt.MatchString(clean):
		return TypeVideo
	}
	return TypeUnknown
}

// FilenameFromURL returns the last path segment of a reference, or "".
func FilenameFromURL(ref string) string {
	clean := stripQuery(strings.TrimSpace(ref))
	clean = strings.TrimRight(clean, "/")
	if clean == "" {
		return ""
	}
	base := path.Base(clean)
	if base == "." || base == "/" {
		return ""
	}
	// "blob:http://host/uuid" and "https://host" both end in a host-ish segment.
	if strings.HasSuffix(base, ":") {
		return ""
	}
	return base
}

var legacyBadNames = map[string]bool{
	"undefined":       true,
	"null":            true,
	"[object object]": true,
}

// IsLegacyBroken reports whether a filename matches a known-bad legacy pattern
// left behind by earlier versions of the admin dashboard.
func IsLegacyBroken(filename string) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	if legacyBadNames[name] {
		return true
	}
	return strings.HasPrefix(name, "blob-") ||
		strings.HasPrefix(name, "blob_") ||
		strings.HasPrefix(name, EphemeralScheme)
}

// ComputeStatus derives a record status.
//
// An ephemeral reference always forces StatusBroken, even over an explicit
// upstream status. Otherwise a valid explicit status wins over recomputation.
func ComputeStatus(raw, filename, resolved string, explicit Status) Status {
	if IsEphemeral(raw) {
		return StatusBroken
	}
	if explicit.Valid() {
		return explicit
	}
	if IsLegacyBroken(filename) {
		return StatusBroken
	}
	if resolved == "" {
		return StatusNeedsFix
	}
	return StatusOK
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
