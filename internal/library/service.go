package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/MrSnakeDoc/encore/internal/metrics"
	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/MrSnakeDoc/encore/internal/thumbs"
)

var (
	ErrUnknownRecord = errors.New("unknown media record")
	ErrNotSelectable = errors.New("media record is not selectable")
	ErrStillBroken   = errors.New("media record could not be repaired")
	ErrEmptyUpload   = errors.New("no file provided")
)

// Action names, also used as in-flight guard keys and metric labels.
const (
	ActionUpload  = "upload"
	ActionRefresh = "refresh"
	ActionRepair  = "repair"
	ActionCleanup = "cleanup"
	ActionRetry   = "retry"
	ActionInsert  = "insert"
)

// Thumbnailer renders previews; *thumbs.Generator implements it.
type Thumbnailer interface {
	Image(r io.Reader) ([]byte, error)
	Video(ctx context.Context, src string) ([]byte, error)
}

// localPather is implemented by blob backends that keep files on disk, so
// ffmpeg can read them directly instead of over HTTP.
type localPather interface {
	LocalPath(key string) (string, error)
}

// Service runs the operator actions of the media library. Each action admits
// one run at a time; an overlapping call fails with ErrInFlight.
type Service struct {
	catalog *Catalog
	store   *site.Store
	blobs   blob.Store
	thumbs  Thumbnailer
	guard   *Guard
	logger  logger.Logger
}

func NewService(catalog *Catalog, store *site.Store, blobs blob.Store, th Thumbnailer, log logger.Logger) *Service {
	return &Service{
		catalog: catalog,
		store:   store,
		blobs:   blobs,
		thumbs:  th,
		guard:   NewGuard(),
		logger:  log,
	}
}

// Catalog exposes the read model.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Busy reports whether an action (or "retry:<id>") is running.
func (s *Service) Busy(key string) bool { return s.guard.Running(key) }

func run[T any](ctx context.Context, s *Service, action, key string, task Task[T]) (T, error) {
	start := time.Now()
	res := Run(ctx, s.guard, key, task)
	if errors.Is(res.Err, ErrInFlight) {
		metrics.MediaActions.WithLabelValues(action, "in_flight").Inc()
		return res.Value, res.Err
	}
	metrics.RecordAction(action, res.Err, time.Since(start))
	if res.Err != nil {
		s.logger.Warn("media action failed", logger.String("action", action), logger.Error(res.Err))
	} else {
		s.logger.Info("media action completed", logger.String("action", action), logger.Duration("took", time.Since(start)))
	}
	return res.Value, res.Err
}

// UploadInput describes one file to store.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
	// Path optionally names the destination key.
	Path string
}

// Upload stores a file and returns its insertable URL.
func (s *Service) Upload(ctx context.Context, in UploadInput) (string, error) {
	return run(ctx, s, ActionUpload, ActionUpload, func(ctx context.Context) (string, error) {
		return s.upload(ctx, in)
	})
}

// Put stores a file outside the action guard. Site editors upload many
// files at once through it; Upload is the single-flight library action.
func (s *Service) Put(ctx context.Context, in UploadInput) (string, error) {
	start := time.Now()
	url, err := s.upload(ctx, in)
	metrics.RecordAction(ActionUpload, err, time.Since(start))
	return url, err
}

func (s *Service) upload(ctx context.Context, in UploadInput) (string, error) {
	if in.Body == nil {
		return "", ErrEmptyUpload
	}
	key := blob.KeyFor(in.Path, in.Filename)
	ct := in.ContentType
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
			ct = byExt
		}
	}

	url, err := s.blobs.Put(ctx, key, ct, in.Body, in.Size)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if in.Size > 0 {
		metrics.UploadBytes.Add(float64(in.Size))
	}
	s.logger.Info("file uploaded", logger.String("key", key), logger.String("content_type", ct))

	s.catalog.Refresh(ctx)
	return url, nil
}

// Refresh rebuilds the catalog and returns the record count.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	return run(ctx, s, ActionRefresh, ActionRefresh, func(ctx context.Context) (int, error) {
		return s.catalog.Refresh(ctx), nil
	})
}

// Repair rewrites resolvable references to absolute URLs, relinks references
// whose file is found in the upload folder and generates missing thumbnails.
// It returns a short summary for the operator.
func (s *Service) Repair(ctx context.Context) (string, error) {
	return run(ctx, s, ActionRepair, ActionRepair, s.repair)
}

type repairStats struct {
	repaired    int
	thumbnails  int
	stillBroken int
}

func (s *Service) repair(ctx context.Context) (string, error) {
	origin := s.catalog.Origin()
	uploads, err := s.blobs.List(ctx, s.catalog.folder)
	if err != nil {
		return "", fmt.Errorf("failed to list uploads: %w", err)
	}

	var (
		stats   repairStats
		actions site.Batch
		thumbed = make(map[string]string)
	)

	for i, cand := range site.Extract(s.store.Snapshot()) {
		r := media.Normalize(cand.Value, i, origin)
		if r.Status == media.StatusBroken {
			stats.stillBroken++
			continue
		}

		url := r.URL
		rewrite := url != "" && !media.IsAbsolute(r.Raw)
		if r.Status == media.StatusNeedsFix {
			f, ok := findUpload(uploads, r.Filename)
			if !ok {
				stats.stillBroken++
				continue
			}
			url, rewrite = f.URL, true
		}

		var thumbURL string
		if _, isObject := cand.Value.(map[string]any); isObject && r.ThumbnailURL == "" {
			thumbURL = s.thumbnailFor(ctx, r.Type, url, thumbed, &stats)
		}

		if !rewrite && thumbURL == "" {
			continue
		}
		a := site.RewriteMedia{Pointer: cand.Pointer, ThumbnailURL: thumbURL}
		if rewrite {
			a.URL = url
			stats.repaired++
		}
		actions = append(actions, a)
	}

	for _, f := range uploads {
		s.thumbnailFor(ctx, media.InferType("", f.Name), f.URL, thumbed, &stats)
	}

	if len(actions) > 0 {
		if err := s.store.Dispatch(ctx, actions); err != nil {
			return "", err
		}
	}
	s.catalog.Refresh(ctx)

	return stats.summary(), nil
}

// thumbnailFor returns the thumbnail URL of an uploaded image or video,
// generating it when missing. Failures are logged and yield "".
func (s *Service) thumbnailFor(ctx context.Context, typ media.Type, url string, done map[string]string, stats *repairStats) string {
	if typ != media.TypeImage && typ != media.TypeVideo {
		return ""
	}
	key := s.catalog.Origin().KeyOf(url)
	if key == "" || strings.HasPrefix(key, thumbs.Folder+"/") {
		return ""
	}
	if tu, ok := done[key]; ok {
		return tu
	}

	tu, created, err := s.ensureThumbnail(ctx, typ, key)
	if err != nil {
		s.logger.Warn("thumbnail generation failed", logger.String("key", key), logger.Error(err))
		tu = ""
	}
	if created {
		stats.thumbnails++
	}
	done[key] = tu
	return tu
}

func (s *Service) ensureThumbnail(ctx context.Context, typ media.Type, key string) (string, bool, error) {
	ok, err := s.blobs.Exists(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	tkey := thumbs.Key(key)
	if exists, err := s.blobs.Exists(ctx, tkey); err == nil && exists {
		return s.blobs.URL(tkey), false, nil
	}

	var data []byte
	switch typ {
	case media.TypeImage:
		rc, err := s.blobs.Open(ctx, key)
		if err != nil {
			return "", false, err
		}
		data, err = s.thumbs.Image(rc)
		_ = rc.Close()
		if err != nil {
			return "", false, err
		}
	case media.TypeVideo:
		src := s.blobs.URL(key)
		if lp, ok := s.blobs.(localPather); ok {
			if p, err := lp.LocalPath(key); err == nil {
				src = p
			}
		}
		data, err = s.thumbs.Video(ctx, src)
		if err != nil {
			return "", false, err
		}
	}

	url, err := s.blobs.Put(ctx, tkey, "image/jpeg", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (st repairStats) summary() string {
	if st == (repairStats{}) {
		return "nothing to repair"
	}
	parts := []string{
		"repaired " + plural(st.repaired, "reference"),
		"generated " + plural(st.thumbnails, "thumbnail"),
	}
	if st.stillBroken > 0 {
		parts = append(parts, fmt.Sprintf("%d still broken", st.stillBroken))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Cleanup removes every broken reference from the document and returns how
// many were purged.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	return run(ctx, s, ActionCleanup, ActionCleanup, func(ctx context.Context) (int, error) {
		origin := s.catalog.Origin()
		var ptrs []string
		for i, cand := range site.Extract(s.store.Snapshot()) {
			if media.Normalize(cand.Value, i, origin).Status == media.StatusBroken {
				ptrs = append(ptrs, cand.Pointer)
			}
		}
		if len(ptrs) == 0 {
			return 0, nil
		}

		purge := &site.PurgeMedia{Pointers: ptrs}
		if err := s.store.Dispatch(ctx, purge); err != nil {
			return 0, err
		}
		s.catalog.Refresh(ctx)
		return purge.Removed, nil
	})
}

// Retry tries to fix one record in place by finding its file in the upload
// store. Each record has its own guard, so different records can be retried
// concurrently.
func (s *Service) Retry(ctx context.Context, id string) (media.Record, error) {
	return run(ctx, s, ActionRetry, ActionRetry+":"+id, func(ctx context.Context) (media.Record, error) {
		rec, ok := s.catalog.Get(id)
		if !ok {
			return media.Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
		}
		if rec.Status == media.StatusOK {
			return rec, nil
		}

		url, found, err := s.locate(ctx, rec)
		if err != nil {
			return media.Record{}, err
		}
		if !found {
			return rec, fmt.Errorf("%w: %s", ErrStillBroken, rec.Filename)
		}

		if len(rec.Refs) > 0 {
			batch := make(site.Batch, 0, len(rec.Refs))
			for _, p := range rec.Refs {
				batch = append(batch, site.RewriteMedia{Pointer: p, URL: url})
			}
			if err := s.store.Dispatch(ctx, batch); err != nil {
				return media.Record{}, err
			}
		}
		s.catalog.Refresh(ctx)

		rec.URL = url
		rec.Status = media.StatusOK
		return rec, nil
	})
}

// locate finds the stored file behind a record: first at the key its raw
// reference points to, then by filename in the upload folder.
func (s *Service) locate(ctx context.Context, rec media.Record) (string, bool, error) {
	if rec.Raw != "" && !media.IsEphemeral(rec.Raw) && !media.IsAbsolute(rec.Raw) {
		key := strings.TrimPrefix(strings.TrimLeft(rec.Raw, "/"), media.UploadPrefix)
		if key != "" {
			ok, err := s.blobs.Exists(ctx, key)
			if err != nil {
				return "", false, fmt.Errorf("failed to check %s: %w", key, err)
			}
			if ok {
				return s.blobs.URL(key), true, nil
			}
		}
	}
	if media.IsEphemeral(rec.Raw) || media.IsLegacyBroken(rec.Filename) {
		return "", false, nil
	}

	files, err := s.blobs.List(ctx, s.catalog.folder)
	if err != nil {
		return "", false, fmt.Errorf("failed to list uploads: %w", err)
	}
	if f, ok := findUpload(files, rec.Filename); ok {
		return f.URL, true, nil
	}
	return "", false, nil
}

// Insert writes a selectable record's URL into the content field at pointer.
func (s *Service) Insert(ctx context.Context, id, pointer string) (media.Record, error) {
	return run(ctx, s, ActionInsert, ActionInsert, func(ctx context.Context) (media.Record, error) {
		rec, ok := s.catalog.Get(id)
		if !ok {
			return media.Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
		}
		if !media.Selectable(rec) {
			return media.Record{}, fmt.Errorf("%w: %s", ErrNotSelectable, id)
		}
		if err := s.store.Dispatch(ctx, site.SetMediaField{Pointer: pointer, URL: rec.URL}); err != nil {
			return media.Record{}, err
		}
		s.catalog.Refresh(ctx)
		return rec, nil
	})
}

// findUpload matches a filename against the upload listing, accepting the
// "{uuid}-{name}" form given to uploads without an explicit path.
func findUpload(files []blob.File, filename string) (blob.File, bool) {
	if filename == "" {
		return blob.File{}, false
	}
	for _, f := range files {
		if f.Name == filename {
			return f, true
		}
	}
	var match blob.File
	n := 0
	for _, f := range files {
		if strings.HasSuffix(f.Name, "-"+filename) {
			match = f
			n++
		}
	}
	return match, n == 1
}
