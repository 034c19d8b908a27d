package video_compressor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

// GalleryPicker selects the given files, or every video found in Dir when
// no file was given
type GalleryPicker struct {
	Dir   string
	Files []string
}

var _ Picker = (*GalleryPicker)(nil)

// PickVideos returns the readable videos of the selection. Files that can
// not be read are reported in the error but do not prevent the others from
// being selected.
func (g *GalleryPicker) PickVideos(ctx context.Context) ([]string, error) {
	candidates := g.Files
	if len(candidates) == 0 {
		files, err := ListVideoFiles(g.Dir)
		if err != nil {
			return nil, multierr.Append(err, ErrSelectionEmpty)
		}
		candidates = files
	}

	var errs error
	uris := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(err, ErrSelectionEmpty)
		}
		if mediaType := guessMediaType(candidate); mediaType != Video {
			errs = multierr.Append(errs, fmt.Errorf("%s is not a video (%s)", candidate, mediaType))
			continue
		}
		if err := checkReadable(candidate); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			abs = candidate
		}
		uris = append(uris, abs)
	}
	if len(uris) == 0 {
		errs = multierr.Append(errs, ErrSelectionEmpty)
	}
	return uris, errs
}

func checkReadable(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: reading %s", ErrPermissionDenied, path)
		}
		return err
	}
	return file.Close()
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: creating %s", ErrPermissionDenied, dir)
		}
		return err
	}
	probe, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: writing to %s", ErrPermissionDenied, dir)
		}
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// CheckPermissions verifies the gallery can be read and the save location
// written. Every problem is reported, none of them stops the application.
func CheckPermissions(galleryDir, saveDir string) error {
	var errs error
	if galleryDir != "" {
		if _, err := os.ReadDir(galleryDir); err != nil {
			if errors.Is(err, os.ErrPermission) {
				err = fmt.Errorf("%w: listing %s", ErrPermissionDenied, galleryDir)
			}
			errs = multierr.Append(errs, err)
		}
	}
	if saveDir != "" {
		errs = multierr.Append(errs, checkWritable(saveDir))
	}
	return errs
}

// CameraRecorder records one clip from a capture device with ffmpeg
type CameraRecorder struct {
	FFmpeg   string
	Format   string // v4l2, avfoundation, dshow
	Device   string
	Duration time.Duration
	Dir      string
}

var _ Recorder = (*CameraRecorder)(nil)

func (c *CameraRecorder) args(outputPath string) []string {
	// ffmpeg -y -f v4l2 -i /dev/video0 -t 10 OUT
	args := []string{"-y", "-v", "error", "-f", c.Format, "-i", c.Device}
	if c.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(c.Duration.Seconds(), 'f', -1, 64))
	}
	return append(args, "-c:v", "libx264", "-preset", "veryfast", outputPath)
}

// RecordVideo blocks until the clip is recorded. Cancelling ctx aborts the
// recording and reports an empty selection.
func (c *CameraRecorder) RecordVideo(ctx context.Context) (string, error) {
	ffmpeg := c.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create recording directory: %w", err)
	}
	name := "VID_" + time.Now().Format("20060102_150405") + ".mp4"
	outputPath := filepath.Join(c.Dir, name)

	cmd := exec.CommandContext(ctx, ffmpeg, c.args(outputPath)...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		os.Remove(outputPath)
		return "", ErrSelectionEmpty
	}
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg capture failed: %w: %s", err, output)
	}
	return outputPath, nil
}
