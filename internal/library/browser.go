package library

import (
	"slices"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/encore/internal/media"
)

// PageSize applies to the main grid and the broken section independently.
const PageSize = 30

type Filter string

const (
	FilterAll    Filter = "all"
	FilterImages Filter = "images"
	FilterVideos Filter = "videos"
	FilterBroken Filter = "broken"
)

// ParseFilter maps a query value to a Filter; "" means FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterImages, FilterVideos, FilterBroken:
		return f, true
	}
	return FilterAll, false
}

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortName   Sort = "name"
)

// ParseSort maps a query value to a Sort; "" means SortNewest.
func ParseSort(s string) (Sort, bool) {
	switch o := Sort(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortNewest, true
	case SortNewest, SortOldest, SortName:
		return o, true
	}
	return SortNewest, false
}

// View is what the library modal renders.
type View struct {
	Filter Filter `json:"filter"`
	Sort   Sort   `json:"sort"`
	Search string `json:"search"`

	ShowMain bool           `json:"showMain"`
	Items    []media.Record `json:"items"`
	Page     int            `json:"page"`
	Pages    int            `json:"pages"`
	Total    int            `json:"total"`

	BrokenOpen  bool           `json:"brokenOpen"`
	Broken      []media.Record `json:"broken"`
	BrokenPage  int            `json:"brokenPage"`
	BrokenPages int            `json:"brokenPages"`
	BrokenTotal int            `json:"brokenTotal"`

	Selected string `json:"selected,omitempty"`
}

// Browser holds the state of the media library modal. Every state change
// recomputes the view once and hands it to the OnChange listener.
type Browser struct {
	mu sync.Mutex

	records    []media.Record
	filter     Filter
	sort       Sort
	search     string
	page       int
	brokenPage int
	brokenOpen bool
	selected   string
	open       bool
	session    uint64 // bumped by Open and Close; stale debounced searches are dropped

	view     View
	onChange func(View)
	typing   *Debouncer
}

func NewBrowser() *Browser {
	b := &Browser{typing: NewDebouncer(DebounceDelay)}
	b.reset()
	b.view = b.compute()
	return b
}

// OnChange registers the listener called after each recomputation.
func (b *Browser) OnChange(fn func(View)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Open shows the modal over records with all transient state reset.
func (b *Browser) Open(records []media.Record) {
	b.update(func() {
		b.typing.Cancel()
		b.session++
		b.reset()
		b.records = slices.Clone(records)
		b.open = true
	})
}

// Close hides the modal and clears the selection.
func (b *Browser) Close() {
	b.update(func() {
		b.typing.Cancel()
		b.session++
		b.open = false
		b.selected = ""
	})
}

// IsOpen reports whether the modal is showing.
func (b *Browser) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// SetRecords swaps the listing after a refresh. Cursors are clamped, and a
// selection that is no longer selectable is dropped.
func (b *Browser) SetRecords(records []media.Record) {
	b.update(func() {
		b.records = slices.Clone(records)
		if b.selected != "" {
			if r, ok := b.find(b.selected); !ok || !media.Selectable(r) {
				b.selected = ""
			}
		}
	})
}

func (b *Browser) SetFilter(f Filter) {
	b.update(func() {
		b.filter = f
		if f == FilterBroken {
			b.brokenOpen = true
		}
		b.resetCursors()
	})
}

func (b *Browser) SetSort(s Sort) {
	b.update(func() {
		b.sort = s
		b.resetCursors()
	})
}

// SetSearch applies a search term immediately.
func (b *Browser) SetSearch(q string) {
	b.update(func() {
		b.search = strings.TrimSpace(q)
		b.resetCursors()
	})
}

// Type records a keystroke in the search box; the search is applied once
// typing pauses for DebounceDelay.
func (b *Browser) Type(q string) {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	b.typing.Trigger(func() { b.searchIn(session, q) })
}

// searchIn applies q only if the modal has not been reopened or closed
// since the keystroke.
func (b *Browser) searchIn(session uint64, q string) {
	b.update(func() {
		if session != b.session {
			return
		}
		b.search = strings.TrimSpace(q)
		b.resetCursors()
	})
}

func (b *Browser) SetPage(n int) {
	b.update(func() { b.page = n })
}

func (b *Browser) SetBrokenPage(n int) {
	b.update(func() { b.brokenPage = n })
}

// ToggleBroken expands or collapses the broken section.
func (b *Browser) ToggleBroken() {
	b.update(func() { b.brokenOpen = !b.brokenOpen })
}

// SetBrokenOpen sets the broken section state explicitly.
func (b *Browser) SetBrokenOpen(open bool) {
	b.update(func() { b.brokenOpen = open })
}

// Toggle selects id, or deselects it if it is already selected. Records that
// are not selectable are ignored; the result reports the new selection state.
func (b *Browser) Toggle(id string) bool {
	var selected bool
	b.update(func() {
		if b.selected == id {
			b.selected = ""
			return
		}
		r, ok := b.find(id)
		if !ok || !media.Selectable(r) {
			return
		}
		b.selected = id
		selected = true
	})
	return selected
}

// Selected returns the currently selected record.
func (b *Browser) Selected() (media.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected == "" {
		return media.Record{}, false
	}
	return b.find(b.selected)
}

// Confirm returns the URL of the selected record and closes the modal.
func (b *Browser) Confirm() (string, bool) {
	r, ok := b.Selected()
	if !ok || !media.Selectable(r) {
		return "", false
	}
	b.Close()
	return r.URL, true
}

// View returns the last computed view.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *Browser) update(fn func()) {
	b.mu.Lock()
	fn()
	v := b.compute()
	b.view = v
	listener := b.onChange
	b.mu.Unlock()

	if listener != nil {
		listener(v)
	}
}

func (b *Browser) reset() {
	b.filter = FilterAll
	b.sort = SortNewest
	b.search = ""
	b.brokenOpen = false
	b.selected = ""
	b.resetCursors()
}

func (b *Browser) resetCursors() {
	b.page = 1
	b.brokenPage = 1
}

func (b *Browser) find(id string) (media.Record, bool) {
	for _, r := range b.records {
		if r.ID == id {
			return r, true
		}
	}
	return media.Record{}, false
}

// compute builds the view and writes clamped cursors back into the state.
func (b *Browser) compute() View {
	var main, broken []media.Record
	needle := strings.ToLower(b.search)

	for _, r := range b.records {
		if needle != "" && !strings.Contains(strings.ToLower(r.Filename), needle) {
			continue
		}
		if r.Status == media.StatusBroken {
			broken = append(broken, r)
			continue
		}
		if matchesType(b.filter, r) {
			main = append(main, r)
		}
	}
	sortRecords(main, b.sort)
	sortRecords(broken, b.sort)

	showMain := b.filter != FilterBroken
	if !showMain {
		main = nil
	}

	v := View{
		Filter:      b.filter,
		Sort:        b.sort,
		Search:      b.search,
		ShowMain:    showMain,
		Total:       len(main),
		BrokenOpen:  b.brokenOpen,
		BrokenTotal: len(broken),
		Selected:    b.selected,
	}
	v.Items, b.page, v.Pages = paginate(main, b.page)
	v.Page = b.page
	v.Broken, b.brokenPage, v.BrokenPages = paginate(broken, b.brokenPage)
	v.BrokenPage = b.brokenPage
	return v
}

func matchesType(f Filter, r media.Record) bool {
	switch f {
	case FilterImages:
		return r.Type == media.TypeImage
	case FilterVideos:
		return r.Type == media.TypeVideo
	}
	return true
}

func sortRecords(rs []media.Record, s Sort) {
	switch s {
	case SortName:
		slices.SortStableFunc(rs, func(a, b media.Record) int {
			return strings.Compare(strings.ToLower(a.Filename), strings.ToLower(b.Filename))
		})
	case SortOldest:
		slices.SortStableFunc(rs, func(a, b media.Record) int { return compareCreated(a, b, false) })
	default:
		slices.SortStableFunc(rs, func(a, b media.Record) int { return compareCreated(a, b, true) })
	}
}

// compareCreated orders by creation time; records without one sort last.
func compareCreated(a, b media.Record, newestFirst bool) int {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return 0
	case a.CreatedAt == nil:
		return 1
	case b.CreatedAt == nil:
		return -1
	}
	c := a.CreatedAt.Compare(*b.CreatedAt)
	if newestFirst {
		return -c
	}
	return c
}

// paginate returns the page slice, the clamped page and the page count.
func paginate(rs []media.Record, page int) ([]media.Record, int, int) {
	pages := (len(rs) + PageSize - 1) / PageSize
	if pages < 1 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := (page - 1) * PageSize
	end := min(start+PageSize, len(rs))
	items := make([]media.Record, 0, end-start)
	items = append(items, rs[start:end]...)
	return items, page, pages
}

// Query is browser state carried by a stateless request.
type Query struct {
	Filter     Filter
	Sort       Sort
	Search     string
	Page       int
	BrokenPage int
	BrokenOpen bool
}

// Browse replays q on a freshly opened browser and returns the view.
func Browse(records []media.Record, q Query) View {
	b := NewBrowser()
	b.Open(records)
	if q.Filter != "" {
		b.SetFilter(q.Filter)
	}
	if q.Sort != "" {
		b.SetSort(q.Sort)
	}
	b.SetSearch(q.Search)
	if q.BrokenOpen {
		b.SetBrokenOpen(true)
	}
	b.SetPage(q.Page)
	b.SetBrokenPage(q.BrokenPage)
	return b.View()
}
