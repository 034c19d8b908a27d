package video_compressor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func TestResizeThumbnail(t *testing.T) {
	small := solidImage(10, 5)
	if got := ResizeThumbnail(small, 32, 16); got != image.Image(small) {
		t.Fatal("small images should be kept as they are")
	}

	big := ResizeThumbnail(solidImage(640, 360), 32, 16)
	size := big.Bounds().Size()
	if size.X > 32 || size.Y > 16 || size.X == 0 || size.Y == 0 {
		t.Fatalf("size = %v", size)
	}
}

func TestThumbnailLoader(t *testing.T) {
	grabs := make(chan string, 4)
	grab := func(ctx context.Context, uri string) (image.Image, error) {
		grabs <- uri
		return solidImage(320, 180), nil
	}
	loader := NewThumbnailLoader(grab, 32, 16, nil)
	ready := make(chan string, 1)
	loader.OnReady = func(uri string) { ready <- uri }

	if img, ok := loader.Thumbnail("a.mp4"); ok || img != nil {
		t.Fatal("the first request only starts the load")
	}
	select {
	case uri := <-ready:
		if uri != "a.mp4" {
			t.Fatalf("ready for %q", uri)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("thumbnail never loaded")
	}

	img, ok := loader.Thumbnail("a.mp4")
	if !ok || img.Bounds().Dx() > 32 || img.Bounds().Dy() > 16 {
		t.Fatalf("thumbnail = %v %v", img, ok)
	}
	if len(grabs) != 1 {
		t.Fatalf("grabbed %d times", len(grabs))
	}
	if _, ok := loader.Thumbnail(""); ok {
		t.Fatal("empty uri has no thumbnail")
	}
}

func TestThumbnailLoader_Failure(t *testing.T) {
	loader := NewThumbnailLoader(func(ctx context.Context, uri string) (image.Image, error) {
		return nil, errors.New("no frames")
	}, 32, 16, nil)
	loader.OnReady = func(uri string) { t.Errorf("unexpected ready for %q", uri) }

	loader.Thumbnail("broken.mp4")
	deadline := time.Now().Add(5 * time.Second)
	for {
		loader.mu.Lock()
		loading := loader.cache["broken.mp4"].loading
		loader.mu.Unlock()
		if !loading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("load never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if img, ok := loader.Thumbnail("broken.mp4"); ok || img != nil {
		t.Fatal("a failed load keeps the placeholder")
	}
}

func TestFFmpegFrameGrabber_Picture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, solidImage(8, 4)); err != nil {
		t.Fatal(err)
	}
	file.Close()

	// pictures never reach ffmpeg
	grab := FFmpegFrameGrabber(filepath.Join(t.TempDir(), "missing-ffmpeg"))
	img, err := grab(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size := img.Bounds().Size(); size.X != 8 || size.Y != 4 {
		t.Fatalf("size = %v", size)
	}

	if _, err := grab(context.Background(), filepath.Join(t.TempDir(), "clip.mp4")); err == nil {
		t.Fatal("expected an error without ffmpeg")
	}
}
