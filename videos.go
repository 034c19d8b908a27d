package video_compressor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// MinBitrate is the lowest source bitrate (bits/s) accepted when the
// min bitrate check is enabled
const MinBitrate = 2000000

// ParseTime_FF parses the timestamp strings printed by ffmpeg during processing
// outputs the number of seconds.
func ParseTime_FF(ts string) (float64, bool) {
	var hours, minutes, seconds, ss int
	n, _ := fmt.Sscanf(ts, "%d:%d:%d.%d", &hours, &minutes, &seconds, &ss)
	if n != 4 {
		return 0, false
	}
	// NOTE: assuming ss is always just two digits
	return (float64(ss) / 100.0) + float64(seconds+minutes*60+hours*3600), true
}

// parseProgressLine extracts the "time=" timestamp of an ffmpeg status line
func parseProgressLine(line string) (float64, bool) {
	timestampIndex := strings.LastIndex(line, "time=")
	if timestampIndex == -1 {
		return 0, false
	}
	ts := line[timestampIndex+len("time="):]
	if spaceIndex := strings.IndexAny(ts, " \r\n"); spaceIndex != -1 {
		ts = ts[:spaceIndex]
	}
	return ParseTime_FF(ts)
}

type VideoSize struct {
	Width  int
	Height int

	// in seconds
	Duration float64
	// bits per second, 0 when unknown
	Bitrate int64
}

// DurationsRoughlyEqual allows a difference of about one second
func DurationsRoughlyEqual(dur1, dur2 float64) bool {
	return math.Abs(dur1-dur2) < 1
}

// parseProbeOutput reads the key=value lines printed by ffprobe. Stream
// entries come before format entries, so the first usable value wins.
func parseProbeOutput(output string) (out VideoSize, err error) {
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found || value == "N/A" || value == "" {
			continue
		}
		switch key {
		case "width":
			if out.Width == 0 {
				out.Width, _ = strconv.Atoi(value)
			}
		case "height":
			if out.Height == 0 {
				out.Height, _ = strconv.Atoi(value)
			}
		case "duration":
			if out.Duration == 0 {
				out.Duration, _ = strconv.ParseFloat(value, 64)
			}
		case "bit_rate":
			if out.Bitrate == 0 {
				out.Bitrate, _ = strconv.ParseInt(value, 10, 64)
			}
		}
	}
	if out.Width <= 0 || out.Height <= 0 || out.Duration <= 0 {
		return out, fmt.Errorf("Could not get video dimensions from ffprobe output %q", strings.TrimSpace(output))
	}
	return out, nil
}

// ffmpegArgs builds the command line compressing request.InputPath into
// request.OutputPath
func ffmpegArgs(request ProcessingRequest, size VideoSize, config Configuration, streamable bool) []string {
	var desired_width = 1080
	if size.Width < size.Height { // vertical video
		desired_width = 720
	}

	// ffmpeg -i SRC/NAME -vf scale="DESIRED_WIDTH:-2" DST/NAME
	var args = []string{
		"-y", "-i", request.InputPath,
	}
	if size.Width > desired_width {
		args = append(args, "-vf", fmt.Sprintf(`scale=%d:-2`, desired_width))
	}
	args = append(args, "-c:v", "libx264")
	if size.Bitrate > 0 {
		target := int64(math.Round(float64(size.Bitrate) * config.Quality.BitrateFactor()))
		args = append(args, "-b:v", strconv.FormatInt(target, 10))
	} else {
		args = append(args, "-crf", strconv.Itoa(config.Quality.CRF()))
	}
	args = append(args, "-c:a", "aac", "-b:a", "128k")
	if streamable {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-f", "mp4", request.OutputPath)
	return args
}

// FFmpegCompressor compresses videos one after the other with ffmpeg
type FFmpegCompressor struct {
	FFmpeg  string
	FFprobe string
	Logger  *zap.Logger

	nextID  atomic.Int64
	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
}

var _ Compressor = (*FFmpegCompressor)(nil)

func NewFFmpegCompressor(ffmpeg, ffprobe string, logger *zap.Logger) *FFmpegCompressor {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegCompressor{
		FFmpeg:  ffmpeg,
		FFprobe: ffprobe,
		Logger:  logger,
		cancels: make(map[int64]context.CancelFunc),
	}
}

func (c *FFmpegCompressor) track(cancel context.CancelFunc) int64 {
	id := c.nextID.Inc()
	c.mu.Lock()
	c.cancels[id] = cancel
	c.mu.Unlock()
	return id
}

func (c *FFmpegCompressor) untrack(id int64) {
	c.mu.Lock()
	delete(c.cancels, id)
	c.mu.Unlock()
}

// Cancel kills the running ffmpeg processes of every batch
func (c *FFmpegCompressor) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
}

func (c *FFmpegCompressor) Start(ctx context.Context, request CompressRequest, listener CompressionListener) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	id := c.track(cancel)
	defer c.untrack(id)

	logger := c.Logger.With(zap.Int64("job", id))
	if err := os.MkdirAll(request.Storage.SaveAt, 0o755); err != nil {
		logger.Error("could not create save location", zap.String("dir", request.Storage.SaveAt), zap.Error(err))
	}

	for index := range request.URIs {
		if ctx.Err() != nil {
			return
		}
		listener.OnStart(index)
		size, path, err := c.compressOne(ctx, index, request, listener)
		switch {
		case ctx.Err() != nil:
			logger.Info("compression aborted", zap.Int("index", index))
			listener.OnCancelled(index)
			return
		case err != nil:
			listener.OnFailure(index, err.Error())
		default:
			listener.OnSuccess(index, size, path)
		}
	}
}

func (c *FFmpegCompressor) compressOne(ctx context.Context, index int, request CompressRequest, listener CompressionListener) (int64, string, error) {
	inputPath := request.URIs[index]
	inputFileInfo, err := os.Stat(inputPath)
	if err != nil {
		return 0, "", fmt.Errorf("Can't find input file: %w", err)
	}

	size, err := c.ProbeVideoSize(ctx, inputPath)
	if err != nil {
		return 0, "", fmt.Errorf("Probing video size failed: %w", err)
	}
	if request.Config.MinBitrateCheck && size.Bitrate > 0 && size.Bitrate <= MinBitrate {
		return 0, "", fmt.Errorf("The source bitrate (%d) is not above the %d needed for compression; disable the min bitrate check to compress it anyway", size.Bitrate, MinBitrate)
	}

	name := request.Storage.OutputName(index, len(request.URIs))
	outputPath := filepath.Join(request.Storage.SaveAt, name)
	tempPath := filepath.Join(request.Storage.SaveAt, "."+uuid.NewString()+".part")

	processing := ProcessingRequest{
		InputPath:  inputPath,
		OutputPath: tempPath,
	}
	err = c.ShrinkMovie(ctx, processing, size, request, func(percent float64) {
		listener.OnProgress(index, percent)
	})
	if err != nil {
		os.Remove(tempPath)
		return 0, "", err
	}

	tempFileInfo, err := os.Stat(tempPath)
	if err != nil {
		return 0, "", fmt.Errorf("Can't find output file: %w", err)
	}

	var renameError error
	if tempFileInfo.Size() > inputFileInfo.Size() {
		c.Logger.Info("compressed file is bigger than the input file, using the input file",
			zap.String("compressed", BytesSize(tempFileInfo.Size())), zap.String("input", BytesSize(inputFileInfo.Size())))
		renameError = copyFile(inputPath, outputPath)
		os.Remove(tempPath)
	} else {
		renameError = os.Rename(tempPath, outputPath)
	}
	if renameError != nil {
		return 0, "", fmt.Errorf("Conversion failed; final rename step failed: %w", renameError)
	}

	// check the file was written properly or not
	outFileInfo, err := os.Stat(outputPath)
	if err != nil {
		return 0, "", fmt.Errorf("could not confirm output file written: %w", err)
	}

	// Set the modified timestamp the same as the input file to preserve the recording date
	os.Chtimes(outputPath, inputFileInfo.ModTime(), inputFileInfo.ModTime())

	return outFileInfo.Size(), outputPath, nil
}

func (c *FFmpegCompressor) ProbeVideoSize(ctx context.Context, inpath string) (out VideoSize, err error) {
	//    ffprobe -v fatal -select_streams v:0 -show_entries stream=width,height,duration,bit_rate:format=duration,bit_rate -of default=noprint_wrappers=1 VID_20191207_115139.mp4
	//    width=1920
	//    height=1080
	//    duration=75.049911
	//    bit_rate=16981420
	//    duration=75.072000
	//    bit_rate=17110731
	var probeArgs = []string{
		"-v", "fatal", "-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration,bit_rate:format=duration,bit_rate",
		"-of", "default=noprint_wrappers=1",
		inpath,
	}
	probeCmd := exec.CommandContext(ctx, c.FFprobe, probeArgs...)
	output, err := probeCmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("ffprobe command failed with: %w", err)
	}
	return parseProbeOutput(string(output))
}

// ShrinkMovie runs ffmpeg and reports the processed share of the video
// through progress. Returns nil if success.
func (c *FFmpegCompressor) ShrinkMovie(ctx context.Context, request ProcessingRequest, size VideoSize, batch CompressRequest, progress func(percent float64)) error {
	args := ffmpegArgs(request, size, batch.Config, batch.Streamable)
	cmd := exec.CommandContext(ctx, c.FFmpeg, args...)

	cmdout, err := cmd.StderrPipe()
	if err != nil {
		panic(fmt.Errorf("programmer error: incorrect usage of command piping: %w", err))
	}

	startTime := time.Now()
	c.Logger.Debug("running ffmpeg", zap.String("cmd", cmd.String()))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not start ffmpeg: %w", err)
	}

	// Read the text output of ffmpeg and parse it to understand progress
	var lastLine string
	reader := bufio.NewReader(cmdout)
	for {
		line, err := reader.ReadString('\r')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lastLine = trimmed
		}

		if durationProcessed, ok := parseProgressLine(line); ok {
			percentage := (durationProcessed / size.Duration) * 100
			progress(math.Max(0, math.Min(100, percentage)))
			c.Logger.Debug("ffmpeg progress",
				zap.String("elapsed", FormatTime(time.Since(startTime).Seconds())),
				zap.Float64("percent", percentage))
		}

		if err != nil {
			if err != io.EOF {
				// This is an IO error. It doesn't necessarily mean processing failed.
				// Just break out of the parsing loop and wait for ffmpeg to finish
				c.Logger.Warn("I/O error while interacting with ffmpeg", zap.Error(err))
			}
			break
		}
	}

	// Wait for ffmpeg process to finish
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg did not close properly: %w: %s", err, lastLine)
	}

	// check the duration of the written file matches our duration
	outSize, err := c.ProbeVideoSize(ctx, request.OutputPath)
	if err != nil {
		return fmt.Errorf("Conversion appears to be failed because ffprobe failed: %w", err)
	}
	if !DurationsRoughlyEqual(size.Duration, outSize.Duration) {
		return fmt.Errorf("Conversion failed; duration mismatch: %8.2f -> %8.2f", size.Duration, outSize.Duration)
	}

	// success!!
	return nil
}
