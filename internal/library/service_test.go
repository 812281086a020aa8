package library

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/MrSnakeDoc/encore/internal/site"
)

const testOrigin = media.Origin("https://files.example.com/uploads/")

type memRepo struct {
	mu  sync.Mutex
	doc site.Document
}

func (r *memRepo) Load(context.Context) (site.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, doc site.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc.Clone()
	return nil
}

type fakeThumbs struct {
	mu     sync.Mutex
	videos []string
	images int
	block  chan struct{}
}

func (f *fakeThumbs) Image(r io.Reader) ([]byte, error) {
	_, _ = io.Copy(io.Discard, r)
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
	return []byte("jpeg"), nil
}

func (f *fakeThumbs) Video(_ context.Context, src string) ([]byte, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.videos = append(f.videos, src)
	f.mu.Unlock()
	return []byte("jpeg"), nil
}

type fixture struct {
	svc    *Service
	store  *site.Store
	blobs  *blob.Local
	thumbs *fakeThumbs
}

func newFixture(t *testing.T, doc site.Document, files ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	local, err := blob.NewLocal(t.TempDir(), testOrigin)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range files {
		if _, err := local.Put(ctx, key, "", strings.NewReader("data"), 4); err != nil {
			t.Fatal(err)
		}
	}

	store := site.NewStore(&memRepo{doc: doc}, logger.Nop())
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}

	catalog := NewCatalog(CatalogOptions{
		Store:  store,
		Blobs:  local,
		Origin: testOrigin,
		Folder: blob.DefaultFolder,
	})
	th := &fakeThumbs{}
	return &fixture{
		svc:    NewService(catalog, store, local, th, logger.Nop()),
		store:  store,
		blobs:  local,
		thumbs: th,
	}
}

func (f *fixture) record(t *testing.T, filename string) media.Record {
	t.Helper()
	for _, r := range f.svc.Catalog().Records() {
		if r.Filename == filename {
			return r
		}
	}
	t.Fatalf("no catalog record for %s", filename)
	return media.Record{}
}

func (f *fixture) get(t *testing.T, ptr string) any {
	t.Helper()
	v, err := site.Get(f.store.Snapshot(), ptr)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", ptr, err)
	}
	return v
}

func TestCatalogMergesDocumentAndUploads(t *testing.T) {
	f := newFixture(t, site.Document{
		"hero": map[string]any{"slides": []any{map[string]any{"image": "uploads/party.png"}}},
		"gallery": map[string]any{"images": []any{
			"/uploads/party.png",
			map[string]any{"url": "blob:http://localhost/abcd"},
			"uploads/media/clip.mp4",
		}},
	}, "party.png", "media/clip.mp4", "media/poster.jpg")

	n, err := f.svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Refresh() = %d records, want 4 (party, blob, clip, poster)", n)
	}

	party := f.record(t, "party.png")
	if party.URL != "https://files.example.com/uploads/party.png" || party.Type != media.TypeImage || party.Status != media.StatusOK {
		t.Errorf("party record = %+v", party)
	}
	if len(party.Refs) != 2 {
		t.Errorf("party refs = %v, want both slide and gallery", party.Refs)
	}

	clip := f.record(t, "clip.mp4")
	if len(clip.Refs) != 1 || clip.Refs[0] != "/gallery/images/2" {
		t.Errorf("clip refs = %v, want document ref merged with upload", clip.Refs)
	}

	broken := f.record(t, "abcd")
	if broken.Status != media.StatusBroken || broken.URL != "" || media.Selectable(broken) {
		t.Errorf("blob record = %+v, want broken, unresolved, not selectable", broken)
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t, nil)

	url, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "Friday Night.png",
		Body:     strings.NewReader("png"),
		Size:     3,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://files.example.com/uploads/media/") || !strings.HasSuffix(url, "-Friday_Night.png") {
		t.Errorf("Upload() url = %q", url)
	}
	if f.svc.Catalog().Records()[0].URL != url {
		t.Error("catalog not refreshed after upload")
	}

	url, err = f.svc.Upload(context.Background(), UploadInput{Filename: "x.png", Path: "/hero/banner.png", Body: strings.NewReader("p")})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://files.example.com/uploads/hero/banner.png" {
		t.Errorf("Upload(path) url = %q", url)
	}

	if _, err := f.svc.Upload(context.Background(), UploadInput{Filename: "x.png"}); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("Upload(no body) error = %v, want ErrEmptyUpload", err)
	}
}

func TestRepair(t *testing.T) {
	f := newFixture(t, site.Document{
		"hero": map[string]any{"image": "uploads/party.png"},
		"gallery": map[string]any{"images": []any{
			map[string]any{"url": "media/clip.mp4", "filename": "clip.mp4"},
			"blob:http://localhost/gone",
			"https://cdn.example.com/external.png",
		}},
	}, "party.png", "media/clip.mp4")
	ctx := context.Background()

	summary, err := f.svc.Repair(ctx)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if want := "repaired 2 references, generated 1 thumbnail, 1 still broken"; summary != want {
		t.Errorf("Repair() = %q, want %q", summary, want)
	}

	if v := f.get(t, "/hero/image"); v != "https://files.example.com/uploads/party.png" {
		t.Errorf("/hero/image = %v", v)
	}
	if v := f.get(t, "/gallery/images/0/url"); v != "https://files.example.com/uploads/media/clip.mp4" {
		t.Errorf("/gallery/images/0/url = %v", v)
	}
	if v := f.get(t, "/gallery/images/0/thumbnailUrl"); v != "https://files.example.com/uploads/thumbs/media/clip.mp4.jpg" {
		t.Errorf("/gallery/images/0/thumbnailUrl = %v", v)
	}
	if v := f.get(t, "/gallery/images/2"); v != "https://cdn.example.com/external.png" {
		t.Errorf("external reference changed: %v", v)
	}

	if len(f.thumbs.videos) != 1 || !strings.HasSuffix(f.thumbs.videos[0], "clip.mp4") || strings.HasPrefix(f.thumbs.videos[0], "http") {
		t.Errorf("ffmpeg sources = %v, want the local file path", f.thumbs.videos)
	}
	if ok, _ := f.blobs.Exists(ctx, "thumbs/media/clip.mp4.jpg"); !ok {
		t.Error("thumbnail not stored")
	}

	summary, err = f.svc.Repair(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary != "repaired 0 references, generated 0 thumbnails, 1 still broken" {
		t.Errorf("second Repair() = %q", summary)
	}
}

func TestRepairSameBasenameImageAndVideo(t *testing.T) {
	f := newFixture(t, site.Document{
		"gallery": []any{map[string]any{"url": "media/party.png"}},
		"hero":    []any{map[string]any{"url": "media/party.mp4"}},
	}, "media/party.png", "media/party.mp4")

	summary, err := f.svc.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if want := "repaired 2 references, generated 2 thumbnails"; summary != want {
		t.Errorf("Repair() = %q, want %q", summary, want)
	}
	if f.thumbs.images != 1 || len(f.thumbs.videos) != 1 {
		t.Errorf("rendered images=%d videos=%d, want 1/1", f.thumbs.images, len(f.thumbs.videos))
	}

	imageThumb := f.get(t, "/gallery/0/thumbnailUrl")
	videoThumb := f.get(t, "/hero/0/thumbnailUrl")
	if imageThumb != "https://files.example.com/uploads/thumbs/media/party.png.jpg" {
		t.Errorf("image thumbnail = %v", imageThumb)
	}
	if videoThumb != "https://files.example.com/uploads/thumbs/media/party.mp4.jpg" {
		t.Errorf("video thumbnail = %v", videoThumb)
	}
	if rec := f.record(t, "party.mp4"); rec.ThumbnailURL != videoThumb {
		t.Errorf("catalog thumbnail for party.mp4 = %q, want %v", rec.ThumbnailURL, videoThumb)
	}
}

func TestRepairNothingToDo(t *testing.T) {
	f := newFixture(t, site.Document{"hero": map[string]any{"title": "Welcome"}})

	summary, err := f.svc.Repair(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary != "nothing to repair" {
		t.Errorf("Repair() = %q", summary)
	}
}

func TestCleanup(t *testing.T) {
	f := newFixture(t, site.Document{
		"gallery": map[string]any{"images": []any{
			"blob:http://localhost/a",
			"uploads/keep.png",
			map[string]any{"url": "blob:http://localhost/b", "status": "ok"},
			map[string]any{"filename": "undefined", "url": "uploads/undefined"},
		}},
	})

	n, err := f.svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Cleanup() = %d, want 3", n)
	}
	images := f.get(t, "/gallery/images").([]any)
	if len(images) != 1 || images[0] != "uploads/keep.png" {
		t.Errorf("images after cleanup = %v", images)
	}

	n, err = f.svc.Cleanup(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second Cleanup() = %d, %v; want 0, nil", n, err)
	}
}

func TestRetry(t *testing.T) {
	f := newFixture(t, site.Document{
		"hero": map[string]any{
			"banner": map[string]any{"url": "party.png", "status": "needs_fix"},
			"video":  "blob:http://localhost/abcd",
		},
	}, "party.png")
	ctx := context.Background()
	if _, err := f.svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	rec := f.record(t, "party.png")
	if rec.Status != media.StatusNeedsFix {
		t.Fatalf("precondition: status = %s, want needs_fix", rec.Status)
	}

	fixed, err := f.svc.Retry(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if fixed.Status != media.StatusOK || fixed.URL != "https://files.example.com/uploads/party.png" {
		t.Errorf("Retry() = %+v", fixed)
	}
	if v := f.get(t, "/hero/banner/status"); v != "ok" {
		t.Errorf("stored status = %v, want ok", v)
	}
	if f.record(t, "party.png").Status != media.StatusOK {
		t.Error("catalog not refreshed after retry")
	}

	broken := f.record(t, "abcd")
	if _, err := f.svc.Retry(ctx, broken.ID); !errors.Is(err, ErrStillBroken) {
		t.Errorf("Retry(blob) error = %v, want ErrStillBroken", err)
	}
	if _, err := f.svc.Retry(ctx, "nope"); !errors.Is(err, ErrUnknownRecord) {
		t.Errorf("Retry(unknown) error = %v, want ErrUnknownRecord", err)
	}
}

func TestInsert(t *testing.T) {
	f := newFixture(t, site.Document{
		"hero":    map[string]any{"image": ""},
		"gallery": map[string]any{"images": []any{"blob:http://localhost/x"}},
	}, "media/party.png")
	ctx := context.Background()
	if _, err := f.svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	party := f.record(t, "party.png")
	if _, err := f.svc.Insert(ctx, party.ID, "/hero/image"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if v := f.get(t, "/hero/image"); v != party.URL {
		t.Errorf("/hero/image = %v, want %s", v, party.URL)
	}

	broken := f.record(t, "x")
	if _, err := f.svc.Insert(ctx, broken.ID, "/hero/image"); !errors.Is(err, ErrNotSelectable) {
		t.Errorf("Insert(broken) error = %v, want ErrNotSelectable", err)
	}
}

func TestCatalogIDsUniqueAcrossSections(t *testing.T) {
	f := newFixture(t, site.Document{
		"gallery": []any{map[string]any{"id": 1, "url": "blob:http://localhost/a"}},
		"hero":    []any{map[string]any{"id": 1, "url": "uploads/party.png"}},
	}, "party.png")
	ctx := context.Background()
	f.svc.Catalog().Refresh(ctx)

	seen := map[string]bool{}
	for _, r := range f.svc.Catalog().Records() {
		if seen[r.ID] {
			t.Fatalf("duplicate record id %q", r.ID)
		}
		seen[r.ID] = true
	}

	party := f.record(t, "party.png")
	if party.ID == "1" || !strings.HasPrefix(party.ID, "1-") {
		t.Errorf("second id 1 = %q, want a suffixed id", party.ID)
	}
	if got, ok := f.svc.Catalog().Get("1"); !ok || got.Status != media.StatusBroken {
		t.Errorf("Get(1) = %+v, %v, want the broken gallery record", got, ok)
	}

	if _, err := f.svc.Insert(ctx, party.ID, "/hero/0/url"); err != nil {
		t.Fatalf("Insert(%s) error = %v", party.ID, err)
	}
	if v := f.get(t, "/hero/0/url"); v != "https://files.example.com/uploads/party.png" {
		t.Errorf("/hero/0/url = %v", v)
	}

	b := NewBrowser()
	b.Open(f.svc.Catalog().Records())
	if !b.Toggle(party.ID) {
		t.Errorf("Toggle(%s) = false, want selectable", party.ID)
	}
}

func TestActionInFlight(t *testing.T) {
	f := newFixture(t, site.Document{
		"hero": map[string]any{"video": map[string]any{"url": "uploads/media/clip.mp4"}},
	}, "media/clip.mp4")
	f.thumbs.block = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Repair(ctx)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !f.svc.Busy(ActionRepair) {
		if time.Now().After(deadline) {
			t.Fatal("repair never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := f.svc.Repair(ctx); !errors.Is(err, ErrInFlight) {
		t.Errorf("overlapping Repair() error = %v, want ErrInFlight", err)
	}
	if _, err := f.svc.Refresh(ctx); err != nil {
		t.Errorf("Refresh() during repair error = %v", err)
	}

	close(f.thumbs.block)
	if err := <-done; err != nil {
		t.Errorf("first Repair() error = %v", err)
	}
}
