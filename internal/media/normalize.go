package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names seen across historical versions of the persisted settings.
var (
	URLFields       = []string{"url", "fileUrl", "file_url", "path", "src"}
	filenameFields  = []string{"filename", "name"}
	mimeFields      = []string{"mimeType", "mime_type", "contentType"}
	thumbnailFields = []string{"thumbnailUrl", "thumbnail_url", "thumbnail", "poster"}
	createdFields   = []string{"createdAt", "created_at", "uploadedAt"}
)

// Normalize converts any persisted shape into a Record. It is total: every
// input, including nil and values of unexpected types, yields a Record.
func Normalize(raw any, index int, origin Origin) Record {
	fields := asFields(raw)

	ref := firstString(fields, URLFields...)
	resolved := ResolveURL(ref, origin)

	filename := firstString(fields, filenameFields...)
	if filename == "" {
		filename = FilenameFromURL(ref)
	}
	if filename == "" {
		filename = fmt.Sprintf("media-%d", index+1)
	}

	id := idOf(fields["id"])
	if id == "" {
		id = fmt.Sprintf("%s-%d", filename, index)
	}

	mime := firstString(fields, mimeFields...)
	if mime == "" {
		if t := stringOf(fields["type"]); strings.Contains(t, "/") {
			mime = t
		}
	}

	typ := InferType(mime, filename)
	if typ == TypeUnknown {
		typ = InferType("", ref)
	}
	if typ == TypeUnknown {
		switch Type(strings.ToLower(stringOf(fields["type"]))) {
		case TypeImage:
			typ = TypeImage
		case TypeVideo:
			typ = TypeVideo
		}
	}

	status := ComputeStatus(ref, filename, resolved, Status(stringOf(fields["status"])))

	return Record{
		ID:           id,
		Type:         typ,
		URL:          resolved,
		ThumbnailURL: ResolveURL(firstString(fields, thumbnailFields...), origin),
		Filename:     filename,
		MimeType:     mime,
		CreatedAt:    firstTime(fields, createdFields...),
		Meta:         metaOf(fields),
		Status:       status,
		Raw:          ref,
	}
}

// NormalizeAll normalizes a list, using each element's position as its index.
func NormalizeAll(raws []any, origin Origin) []Record {
	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		out = append(out, Normalize(raw, i, origin))
	}
	return out
}

func asFields(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		return map[string]any{"url": v}
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return m
	default:
		return map[string]any{}
	}
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringOf(fields[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func idOf(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if math.IsNaN(id) || math.IsInf(id, 0) {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func firstTime(fields map[string]any, keys ...string) *time.Time {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return &t
			}
		case float64, int, int64:
			// Unix milliseconds, as produced by Date.now().
			if ms, ok := numberOf(v); ok && ms > 0 && ms < math.MaxInt64/2 {
				t := time.UnixMilli(int64(ms)).UTC()
				return &t
			}
		}
	}
	return nil
}

func metaOf(fields map[string]any) *Meta {
	src := fields
	if nested, ok := fields["meta"].(map[string]any); ok {
		src = nested
	}

	var m Meta
	if w, ok := numberOf(src["width"]); ok && w > 0 && w < math.MaxInt32 {
		m.Width = int(w)
	}
	if h, ok := numberOf(src["height"]); ok && h > 0 && h < math.MaxInt32 {
		m.Height = int(h)
	}
	if d, ok := numberOf(src["duration"]); ok && d > 0 {
		m.Duration = d
	}
	if m == (Meta{}) {
		return nil
	}
	return &m
}
