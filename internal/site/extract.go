package site

import (
	"sort"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/media"
)

// Candidate is a raw media reference found in the document.
type Candidate struct {
	Pointer string // location of the reference (object or string)
	Value   any    // raw shape handed to media.Normalize
}

// mediaKeys are field names whose string values are media references even
// when the value itself does not look like one (e.g. a bare CDN id).
var mediaKeys = map[string]bool{
	"image": true, "images": true, "photo": true, "photos": true,
	"gallery": true, "video": true, "videos": true, "background": true,
	"backgroundimage": true, "cover": true, "coverimage": true, "poster": true,
	"thumbnail": true, "thumbnailurl": true, "logo": true, "avatar": true,
	"media": true, "heroimage": true, "backgroundvideo": true,
}

// Extract walks the document in key order and returns every media reference.
func Extract(doc Document) []Candidate {
	var out []Candidate
	walk(map[string]any(doc), "", "", &out)
	return out
}

func walk(node any, ptr, key string, out *[]Candidate) {
	switch v := node.(type) {
	case map[string]any:
		if isMediaObject(v) {
			*out = append(*out, Candidate{Pointer: ptr, Value: v})
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(v[k], JoinPointer(ptr, k), k, out)
		}
	case []any:
		for i, item := range v {
			walk(item, JoinPointer(ptr, strconv.Itoa(i)), key, out)
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return
		}
		if LooksLikeMedia(s) || (mediaKeys[strings.ToLower(key)] && !isPlainLink(s)) {
			*out = append(*out, Candidate{Pointer: ptr, Value: s})
		}
	}
}

// isMediaObject reports whether an object describes a single asset: it holds
// a URL-like field that looks like media, or carries upload metadata.
func isMediaObject(m map[string]any) bool {
	var ref string
	for _, f := range media.URLFields {
		if s, ok := m[f].(string); ok && strings.TrimSpace(s) != "" {
			ref = s
			break
		}
	}
	if ref == "" {
		return false
	}
	if LooksLikeMedia(ref) {
		return true
	}
	for _, hint := range []string{"filename", "mimeType", "mime_type", "thumbnailUrl", "thumbnail_url"} {
		if _, ok := m[hint]; ok {
			return true
		}
	}
	return false
}

// LooksLikeMedia reports whether a string is recognizably a media reference.
func LooksLikeMedia(s string) bool {
	s = strings.TrimSpace(s)
	if media.IsEphemeral(s) {
		return true
	}
	if strings.HasPrefix(strings.TrimLeft(s, "/"), media.UploadPrefix) {
		return true
	}
	return media.InferType("", s) != media.TypeUnknown
}

// isPlainLink filters out page links stored under media-ish keys.
func isPlainLink(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "mailto:") || strings.HasPrefix(s, "tel:")
}
