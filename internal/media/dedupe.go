package media

type dedupeKey struct {
	filename string
	url      string
	status   Status
}

// Dedupe collapses records pointing at the same physical asset. Records are
// keyed on (filename, url, status); the first occurrence survives and absorbs
// the Refs of later duplicates. Order is preserved.
func Dedupe(records []Record) []Record {
	out := make([]Record, 0, len(records))
	seen := make(map[dedupeKey]int, len(records))

	for _, r := range records {
		k := dedupeKey{filename: r.Filename, url: r.URL, status: r.Status}
		if i, ok := seen[k]; ok {
			out[i].Refs = mergeRefs(out[i].Refs, r.Refs)
			if out[i].ThumbnailURL == "" {
				out[i].ThumbnailURL = r.ThumbnailURL
			}
			continue
		}
		r.Refs = append([]string(nil), r.Refs...)
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}

func mergeRefs(dst, src []string) []string {
	for _, s := range src {
		dup := false
		for _, d := range dst {
			if d == s {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}
