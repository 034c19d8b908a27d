package video_compressor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrSelectionEmpty   = errors.New("no video selected")
)

type MediaType int

const (
	UnknownType MediaType = iota
	Video
	JPG
	PNG
)

func (m MediaType) String() string {
	switch m {
	case UnknownType:
		return "!unknown!"
	case Video:
		return "video"
	case PNG:
		return "png"
	case JPG:
		return "jpg"
	}
	return "!Unhandled-Case!"
}

func guessMediaType(filename string) MediaType {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi", ".3gp":
		return Video
	case ".jpg", ".jpeg":
		return JPG
	case ".png":
		return PNG
	default:
		return UnknownType
	}
}

// ListVideoFiles returns the video files directly under dir, sorted by name
func ListVideoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("Error listing directory %s: %w", dir, err)
	}
	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if guessMediaType(name) != Video {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

const KB = 1 << 10
const MB = 1 << 20
const GB = 1 << 30

func BytesSize(size int64) string {
	if size >= GB {
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	}
	if size >= MB {
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	}
	if size >= KB {
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	}
	return fmt.Sprintf("%d B", size)
}

func FormatTime(s float64) string {
	seconds := int(s) % 60
	minutes := int(s/60) % 60
	hours := int(s / 3600)
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
