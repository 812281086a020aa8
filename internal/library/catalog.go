package library

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/index"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/MrSnakeDoc/encore/internal/metrics"
	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/MrSnakeDoc/encore/internal/thumbs"
)

// Catalog is the read model of every media asset: references found in the
// settings document plus files in the upload folder, deduplicated.
type Catalog struct {
	store  *site.Store
	blobs  blob.Store
	index  *index.MediaIndex
	origin media.Origin
	folder string
	logger logger.Logger
}

type CatalogOptions struct {
	Store  *site.Store
	Blobs  blob.Store
	Index  *index.MediaIndex
	Origin media.Origin
	// Folder is the upload folder listed alongside document references.
	Folder string
	Logger logger.Logger
}

func NewCatalog(opts CatalogOptions) *Catalog {
	if opts.Index == nil {
		opts.Index = index.NewMediaIndex()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Catalog{
		store:  opts.Store,
		blobs:  opts.Blobs,
		index:  opts.Index,
		origin: opts.Origin,
		folder: opts.Folder,
		logger: opts.Logger,
	}
}

// Origin returns the file origin records resolve against.
func (c *Catalog) Origin() media.Origin { return c.origin }

// Build computes the catalog without publishing it. A failing upload listing
// is logged and the document references are still returned.
func (c *Catalog) Build(ctx context.Context) []media.Record {
	cands := site.Extract(c.store.Snapshot())
	records := make([]media.Record, 0, len(cands))
	for i, cand := range cands {
		r := media.Normalize(cand.Value, i, c.origin)
		r.Refs = []string{cand.Pointer}
		records = append(records, r)
	}

	if c.blobs != nil {
		uploads, err := c.uploadRecords(ctx, len(records))
		if err != nil {
			c.logger.Warn("failed to list uploads, catalog has document references only", logger.Error(err))
		}
		records = append(records, uploads...)
	}

	return uniqueIDs(media.Dedupe(records))
}

// uniqueIDs renames records whose id is already taken. Lists in the document
// often number their entries from 1, so explicit ids repeat across sections.
// The first record keeps its id; later ones get "-2", "-3"... in catalog order.
func uniqueIDs(records []media.Record) []media.Record {
	taken := make(map[string]bool, len(records))
	for i := range records {
		id := records[i].ID
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d", records[i].ID, n)
		}
		records[i].ID = id
		taken[id] = true
	}
	return records
}

// Refresh rebuilds the catalog and returns the number of records.
func (c *Catalog) Refresh(ctx context.Context) int {
	records := c.Build(ctx)
	c.index.Replace(records)
	metrics.RecordCatalog(c.index.CountByStatus())
	c.logger.Debug("media catalog refreshed", logger.Int("records", len(records)))
	return len(records)
}

// Records returns the last built catalog.
func (c *Catalog) Records() []media.Record { return c.index.All() }

// Get looks a record up in the last built catalog.
func (c *Catalog) Get(id string) (media.Record, bool) { return c.index.Get(id) }

// LastRefresh returns when the catalog was last rebuilt.
func (c *Catalog) LastRefresh() time.Time { return c.index.LastReload() }

// Follow rebuilds the catalog after document changes, at most once per delay.
func (c *Catalog) Follow(ctx context.Context, delay time.Duration) *Debouncer {
	d := NewDebouncer(delay)
	c.store.Subscribe(func(site.Document) {
		d.Trigger(func() {
			if ctx.Err() != nil {
				return
			}
			c.Refresh(ctx)
		})
	})
	return d
}

func (c *Catalog) uploadRecords(ctx context.Context, offset int) ([]media.Record, error) {
	files, err := c.blobs.List(ctx, c.folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", c.folder, err)
	}

	thumbDir := path.Join(thumbs.Folder, c.folder)
	thumbByKey := make(map[string]string)
	if tf, err := c.blobs.List(ctx, thumbDir); err == nil {
		for _, f := range tf {
			thumbByKey[f.Key(thumbDir)] = f.URL
		}
	}

	out := make([]media.Record, 0, len(files))
	for i, f := range files {
		raw := map[string]any{
			"url":      f.URL,
			"filename": f.Name,
		}
		if !f.ModTime.IsZero() {
			raw["createdAt"] = f.ModTime.Format(time.RFC3339)
		}
		if tu, ok := thumbByKey[thumbs.Key(f.Key(c.folder))]; ok {
			raw["thumbnailUrl"] = tu
		}
		out = append(out, media.Normalize(raw, offset+i, c.origin))
	}
	return out, nil
}
