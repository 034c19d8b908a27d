package video_compressor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.SaveAt != "pictures" || config.VideoName != "compressed_video" || config.Quality != "medium" {
		t.Fatalf("config = %+v", config)
	}
	if !config.MinBitrateCheck || config.Streamable || config.MarkFailures {
		t.Fatalf("config = %+v", config)
	}
	if config.ProgressStep != DefaultProgressStep || config.Camera.Duration != 10*time.Second {
		t.Fatalf("config = %+v", config)
	}
}

func TestNewViper_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	yaml := "quality: very_high\nstreamable: true\nprogress_step: 10\ncamera:\n  device: /dev/video2\n  duration: 3s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := NewViper(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Quality != "very_high" || !config.Streamable || config.ProgressStep != 10 {
		t.Fatalf("config = %+v", config)
	}
	if config.Camera.Device != "/dev/video2" || config.Camera.Duration != 3*time.Second || config.Camera.Format != "v4l2" {
		t.Fatalf("camera = %+v", config.Camera)
	}

	if _, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("an explicit config file must exist")
	}
}

func TestNewViper_Env(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VIDEO_COMPRESSOR_QUALITY", "low")
	t.Setenv("VIDEO_COMPRESSOR_CAMERA_DEVICE", "/dev/video1")
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Quality != "low" || config.Camera.Device != "/dev/video1" {
		t.Fatalf("config = %+v", config)
	}
}

func TestConfigValidate(t *testing.T) {
	config := Config{
		SaveAt:       " ",
		VideoName:    "a/b",
		Quality:      "ultra",
		ProgressStep: 0,
		LogLevel:     "loud",
		Camera:       CameraConfig{Duration: -time.Second},
	}
	errs := multierr.Errors(config.Validate())
	if len(errs) != 6 {
		t.Fatalf("expected 6 errors, got %d: %v", len(errs), errs)
	}
}

func TestParseQuality(t *testing.T) {
	cases := map[string]VideoQuality{
		"very_low":  VeryLow,
		"Low":       Low,
		" medium ":  Medium,
		"high":      High,
		"very-high": VeryHigh,
	}
	for input, want := range cases {
		got, err := ParseQuality(input)
		if err != nil || got != want {
			t.Errorf("ParseQuality(%q) = %v %v", input, got, err)
		}
	}
	if _, err := ParseQuality("best"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSaveLocationDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := SaveToMovies.Dir()
	if err != nil || got != filepath.Join(home, "Movies") {
		t.Fatalf("got %q %v", got, err)
	}
	got, err = SaveLocation("Downloads").Dir()
	if err != nil || got != filepath.Join(home, "Downloads") {
		t.Fatalf("got %q %v", got, err)
	}

	dir := t.TempDir()
	got, err = SaveLocation(dir).Dir()
	if err != nil || got != dir {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestSessionOptions(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		SaveAt:          dir,
		VideoName:       "clip",
		Quality:         "high",
		MinBitrateCheck: true,
		GalleryDir:      "gallery",
		Camera:          CameraConfig{Format: "v4l2", Device: "/dev/video0", Duration: time.Second, Dir: "rec"},
		FFmpeg:          "/usr/bin/ffmpeg",
		ProgressStep:    5,
		MarkFailures:    true,
	}
	opts, err := config.SessionOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Storage.SaveAt != dir || opts.Storage.VideoName != "clip" {
		t.Fatalf("storage = %+v", opts.Storage)
	}
	if opts.Config.Quality != High || !opts.Config.MinBitrateCheck || !opts.MarkFailures {
		t.Fatalf("opts = %+v", opts)
	}
	camera, ok := opts.Camera.(*CameraRecorder)
	if !ok || camera.FFmpeg != "/usr/bin/ffmpeg" || camera.Dir != "rec" {
		t.Fatalf("camera = %+v", opts.Camera)
	}
	if gallery, ok := opts.Gallery.(*GalleryPicker); !ok || gallery.Dir != "gallery" {
		t.Fatalf("gallery = %+v", opts.Gallery)
	}
}

func TestNewLogger(t *testing.T) {
	logger, closer, err := NewLogger("info", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("discarded")
	closer()

	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err = NewLogger("debug", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("compressing")
	logger.Sync()
	closer()
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "compressing") {
		t.Fatalf("log file = %q %v", data, err)
	}

	if _, _, err := NewLogger("chatty", ""); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
