package video_compressor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/disintegration/imageorient"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// FrameGrabber returns a full size preview image of a media file
type FrameGrabber func(ctx context.Context, uri string) (image.Image, error)

func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := imageorient.Decode(r)
	return img, err
}

func decodeImageFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Could not open file %s: %w", path, err)
	}
	defer file.Close()

	img, err := decodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("Could not decode file %s: %w", path, err)
	}
	return img, nil
}

// FFmpegFrameGrabber picks a representative frame of videos with ffmpeg and
// decodes pictures directly
func FFmpegFrameGrabber(ffmpeg string) FrameGrabber {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return func(ctx context.Context, uri string) (image.Image, error) {
		switch guessMediaType(uri) {
		case JPG, PNG:
			return decodeImageFile(uri)
		}
		// ffmpeg -v error -i SRC -vf thumbnail -frames:v 1 -f image2pipe -vcodec png -
		args := []string{
			"-v", "error", "-i", uri,
			"-vf", "thumbnail", "-frames:v", "1",
			"-f", "image2pipe", "-vcodec", "png", "-",
		}
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, ffmpeg, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("ffmpeg frame grab failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		img, err := decodeImage(&stdout)
		if err != nil {
			return nil, fmt.Errorf("Could not decode frame of %s: %w", uri, err)
		}
		return img, nil
	}
}

// ResizeThumbnail scales img to fit in width x height, never scaling up
func ResizeThumbnail(img image.Image, width, height uint) image.Image {
	size := img.Bounds().Size()
	if uint(size.X) <= width && uint(size.Y) <= height {
		return img
	}
	return resize.Thumbnail(width, height, img, resize.Lanczos3)
}

type thumbEntry struct {
	img     image.Image
	loading bool
}

// ThumbnailLoader loads previews asynchronously and keeps them in memory.
// A failed load leaves the placeholder; it is not retried.
type ThumbnailLoader struct {
	Grab          FrameGrabber
	Width, Height uint
	Timeout       time.Duration
	Logger        *zap.Logger

	// called from the loading goroutine once a preview is available
	OnReady func(uri string)

	mu    sync.Mutex
	cache map[string]*thumbEntry
}

var _ ThumbnailSource = (*ThumbnailLoader)(nil)

func NewThumbnailLoader(grab FrameGrabber, width, height uint, logger *zap.Logger) *ThumbnailLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThumbnailLoader{
		Grab:    grab,
		Width:   width,
		Height:  height,
		Timeout: 20 * time.Second,
		Logger:  logger,
		cache:   make(map[string]*thumbEntry),
	}
}

// Thumbnail returns the preview of uri if it is loaded, and starts loading it otherwise
func (t *ThumbnailLoader) Thumbnail(uri string) (image.Image, bool) {
	if uri == "" {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.cache[uri]; ok {
		return entry.img, entry.img != nil
	}
	t.cache[uri] = &thumbEntry{loading: true}
	go t.load(uri)
	return nil, false
}

func (t *ThumbnailLoader) load(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	defer cancel()

	img, err := t.Grab(ctx, uri)
	if err == nil {
		img = ResizeThumbnail(img, t.Width, t.Height)
	} else {
		img = nil
	}

	t.mu.Lock()
	entry := t.cache[uri]
	entry.loading = false
	entry.img = img
	t.mu.Unlock()

	if err != nil {
		t.Logger.Debug("no preview", zap.String("uri", uri), zap.Error(err))
		return
	}
	if t.OnReady != nil {
		t.OnReady(uri)
	}
}
