package index

import (
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/encore/internal/media"
)

// MediaIndex holds the current media catalog in memory.
// Records keep the order they were built in; lookups by ID are O(1).
type MediaIndex struct {
	mu         sync.RWMutex
	records    []media.Record
	byID       map[string]int
	lastReload time.Time
}

// NewMediaIndex creates an empty index.
func NewMediaIndex() *MediaIndex {
	return &MediaIndex{
		byID: make(map[string]int),
	}
}

// Replace swaps the whole catalog. When two records share an ID the first wins
// the lookup; both stay listed.
func (idx *MediaIndex) Replace(records []media.Record) {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = i
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = slices.Clone(records)
	idx.byID = byID
	idx.lastReload = time.Now()
}

// Get returns a copy of the record with the given ID.
func (idx *MediaIndex) Get(id string) (media.Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i, ok := idx.byID[id]
	if !ok {
		return media.Record{}, false
	}
	r := idx.records[i]
	r.Refs = slices.Clone(r.Refs)
	return r, true
}

// All returns a snapshot of every record in catalog order.
func (idx *MediaIndex) All() []media.Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]media.Record, len(idx.records))
	for i, r := range idx.records {
		r.Refs = slices.Clone(r.Refs)
		out[i] = r
	}
	return out
}

// Count returns the number of records.
func (idx *MediaIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.records)
}

// CountByStatus returns how many records carry each status.
func (idx *MediaIndex) CountByStatus() map[media.Status]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	counts := map[media.Status]int{
		media.StatusOK:       0,
		media.StatusNeedsFix: 0,
		media.StatusBroken:   0,
	}
	for _, r := range idx.records {
		counts[r.Status]++
	}
	return counts
}

// LastReload returns when the catalog was last replaced.
func (idx *MediaIndex) LastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
