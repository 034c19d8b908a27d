package video_compressor

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBytesSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{2_097_152, "2.0 MB"},
		{5 * MB / 2, "2.5 MB"},
		{3 * GB, "3.0 GB"},
	}
	for _, c := range cases {
		if got := BytesSize(c.size); got != c.want {
			t.Errorf("BytesSize(%d) = %q, want %q", c.size, got, c.want)
		}
	}
}

func TestGuessMediaType(t *testing.T) {
	cases := map[string]MediaType{
		"clip.mp4":     Video,
		"CLIP.MOV":     Video,
		"a/b/c.webm":   Video,
		"photo.JPEG":   JPG,
		"shot.png":     PNG,
		"notes.txt":    UnknownType,
		"no_extension": UnknownType,
	}
	for name, want := range cases {
		if got := guessMediaType(name); got != want {
			t.Errorf("guessMediaType(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestListVideoFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MOV", "a.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListVideoFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.MOV")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := ListVideoFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(3723.9); got != "01:02:03" {
		t.Fatalf("got %q", got)
	}
}
