// Package thumbs renders JPEG preview images for uploaded media.
package thumbs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/disintegration/imaging"
)

// Width of every generated thumbnail; height keeps the aspect ratio.
const Width = 320

// Folder holds generated thumbnails in the upload store.
const Folder = "thumbs"

var ErrEmptyOutput = errors.New("ffmpeg produced no frame")

// Runner executes an external command and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Generator produces thumbnails. Images are resized in process, videos are
// sampled with ffmpeg.
type Generator struct {
	runner Runner
	ffmpeg string
	logger logger.Logger
}

func NewGenerator(runner Runner, ffmpegBin string, log logger.Logger) *Generator {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Generator{runner: runner, ffmpeg: ffmpegBin, logger: log}
}

// Image decodes r and returns a JPEG scaled to Width.
func (g *Generator) Image(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Resize(img, Width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Video grabs the frame one second into src (a path or URL ffmpeg can read).
func (g *Generator) Video(ctx context.Context, src string) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", "1",
		"-i", src,
		"-frames:v", "1",
		"-vf", "scale=" + strconv.Itoa(Width) + ":-1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	g.logger.Debug("running ffmpeg", logger.String("src", src))

	stdout, stderr, err := g.runner.Run(ctx, g.ffmpeg, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		return nil, fmt.Errorf("ffmpeg failed on %s: %w: %s", src, err, msg)
	}
	if len(stdout) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyOutput, src)
	}
	return stdout, nil
}

// Key returns the storage key of the thumbnail for a media key. The full
// key, folder and extension included, is kept under Folder so that
// media/party.png and media/party.mp4 get distinct previews.
func Key(key string) string {
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key = path.Clean("/" + strings.TrimSpace(key))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		key = "thumb"
	}
	return Folder + "/" + key + ".jpg"
}
