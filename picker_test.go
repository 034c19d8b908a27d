package video_compressor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGalleryPicker_Dir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.mp4", "a.mov", "readme.txt")

	picker := &GalleryPicker{Dir: dir}
	uris, err := picker.PickVideos(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{filepath.Join(dir, "a.mov"), filepath.Join(dir, "b.mp4")}
	if !reflect.DeepEqual(uris, want) {
		t.Fatalf("got %v, want %v", uris, want)
	}
}

func TestGalleryPicker_Files(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp4", "notes.txt")

	picker := &GalleryPicker{Files: []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "missing.mp4"),
	}}
	uris, err := picker.PickVideos(context.Background())
	if !reflect.DeepEqual(uris, []string{filepath.Join(dir, "a.mp4")}) {
		t.Fatalf("uris = %v", uris)
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", got, err)
	}
	if errors.Is(err, ErrSelectionEmpty) {
		t.Fatal("the selection is not empty")
	}
	if want := "notes.txt is not a video (!unknown!)"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not mention %q", err, want)
	}
}

func TestGalleryPicker_Empty(t *testing.T) {
	picker := &GalleryPicker{Dir: t.TempDir()}
	uris, err := picker.PickVideos(context.Background())
	if len(uris) != 0 || !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("got %v %v", uris, err)
	}

	picker = &GalleryPicker{Dir: filepath.Join(t.TempDir(), "missing")}
	if _, err := picker.PickVideos(context.Background()); !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("got %v", err)
	}
}

func TestCheckPermissions(t *testing.T) {
	gallery := t.TempDir()
	save := filepath.Join(t.TempDir(), "out")
	if err := CheckPermissions(gallery, save); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(save); err != nil {
		t.Fatal("the save location should be created")
	}
	entries, _ := os.ReadDir(save)
	if len(entries) != 0 {
		t.Fatalf("write check left files behind: %v", entries)
	}

	err := CheckPermissions(filepath.Join(gallery, "missing"), "")
	if err == nil {
		t.Fatal("expected an error for a missing gallery")
	}
}

func TestCheckPermissions_Denied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	locked := t.TempDir()
	if err := os.Chmod(locked, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	err := CheckPermissions("", locked)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("got %v", err)
	}
}

func TestCameraRecorderArgs(t *testing.T) {
	c := &CameraRecorder{Format: "v4l2", Device: "/dev/video0", Duration: 2500 * time.Millisecond}
	got := c.args("out.mp4")
	want := []string{"-y", "-v", "error", "-f", "v4l2", "-i", "/dev/video0", "-t", "2.5", "-c:v", "libx264", "-preset", "veryfast", "out.mp4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}

	c.Duration = 0
	if got := c.args("out.mp4"); len(got) != len(want)-2 {
		t.Fatalf("no duration limit expected: %v", got)
	}
}

func TestCameraRecorder_Failure(t *testing.T) {
	c := &CameraRecorder{
		FFmpeg: filepath.Join(t.TempDir(), "missing-ffmpeg"),
		Format: "v4l2",
		Device: "/dev/null",
		Dir:    t.TempDir(),
	}
	if _, err := c.RecordVideo(context.Background()); err == nil || errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.RecordVideo(ctx); !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("cancelled recording should be an empty selection, got %v", err)
	}
}
