package thumbs

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"slices"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/encore/internal/logger"
)

type fakeRunner struct {
	name   string
	args   []string
	stdout []byte
	stderr []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return f.stdout, f.stderr, f.err
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageResizesToWidth(t *testing.T) {
	g := NewGenerator(&fakeRunner{}, "", logger.Nop())

	out, err := g.Image(bytes.NewReader(pngOf(t, 640, 480)))
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}

	thumb, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Image() output is not a JPEG: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("thumbnail size = %dx%d, want 320x240", b.Dx(), b.Dy())
	}
}

func TestImageRejectsGarbage(t *testing.T) {
	g := NewGenerator(&fakeRunner{}, "", logger.Nop())
	if _, err := g.Image(strings.NewReader("not an image")); err == nil {
		t.Error("Image() error = nil for garbage input")
	}
}

func TestVideoRunsFFmpeg(t *testing.T) {
	runner := &fakeRunner{stdout: []byte{0xff, 0xd8, 0xff}}
	g := NewGenerator(runner, "/usr/bin/ffmpeg", logger.Nop())

	out, err := g.Video(context.Background(), "/data/uploads/media/clip.mp4")
	if err != nil {
		t.Fatalf("Video() error = %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Video() returned %d bytes, want 3", len(out))
	}
	if runner.name != "/usr/bin/ffmpeg" {
		t.Errorf("binary = %q", runner.name)
	}
	for _, want := range []string{"-ss", "/data/uploads/media/clip.mp4", "scale=320:-1", "pipe:1"} {
		if !slices.Contains(runner.args, want) {
			t.Errorf("args %v missing %q", runner.args, want)
		}
	}
}

func TestVideoErrors(t *testing.T) {
	g := NewGenerator(&fakeRunner{err: errors.New("exit status 1"), stderr: []byte("moov atom not found\n")}, "", logger.Nop())
	_, err := g.Video(context.Background(), "clip.mp4")
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("Video() error = %v, want stderr in message", err)
	}

	g = NewGenerator(&fakeRunner{}, "", logger.Nop())
	if _, err := g.Video(context.Background(), "clip.mp4"); !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("Video() error = %v, want ErrEmptyOutput", err)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"media/abc-clip.mp4", "thumbs/media/abc-clip.mp4.jpg"},
		{"media/party.PNG?v=2", "thumbs/media/party.PNG.jpg"},
		{"/hero/../gallery/a.png", "thumbs/gallery/a.png.jpg"},
		{"noext", "thumbs/noext.jpg"},
		{"", "thumbs/thumb.jpg"},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	distinct := map[string]bool{}
	for _, k := range []string{"media/party.png", "media/party.mp4", "hero/a.png", "gallery/a.png"} {
		distinct[Key(k)] = true
	}
	if len(distinct) != 4 {
		t.Errorf("thumbnail keys collide: %v", distinct)
	}
}
