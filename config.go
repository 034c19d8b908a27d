package video_compressor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const EnvPrefix = "VIDEO_COMPRESSOR"

type CameraConfig struct {
	Format   string
	Device   string
	Duration time.Duration
	Dir      string
}

type Config struct {
	SaveAt          string
	VideoName       string
	Quality         string
	MinBitrateCheck bool
	Streamable      bool

	GalleryDir string
	Camera     CameraConfig

	FFmpeg  string
	FFprobe string

	ProgressStep int
	MarkFailures bool

	LogLevel string
	LogFile  string
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("save_at", string(SaveToPictures))
	v.SetDefault("video_name", "compressed_video")
	v.SetDefault("quality", Medium.String())
	v.SetDefault("min_bitrate_check", true)
	v.SetDefault("streamable", false)
	v.SetDefault("gallery_dir", ".")
	v.SetDefault("camera.format", "v4l2")
	v.SetDefault("camera.device", "/dev/video0")
	v.SetDefault("camera.duration", "10s")
	v.SetDefault("camera.dir", ".")
	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("ffprobe", "ffprobe")
	v.SetDefault("progress_step", DefaultProgressStep)
	v.SetDefault("mark_failures", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// NewViper returns a viper reading video_compressor.yaml (or configFile when
// set) and VIDEO_COMPRESSOR_* environment variables
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("video_compressor")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func LoadConfig(v *viper.Viper) (Config, error) {
	config := Config{
		SaveAt:          v.GetString("save_at"),
		VideoName:       v.GetString("video_name"),
		Quality:         v.GetString("quality"),
		MinBitrateCheck: v.GetBool("min_bitrate_check"),
		Streamable:      v.GetBool("streamable"),
		GalleryDir:      v.GetString("gallery_dir"),
		Camera: CameraConfig{
			Format:   v.GetString("camera.format"),
			Device:   v.GetString("camera.device"),
			Duration: v.GetDuration("camera.duration"),
			Dir:      v.GetString("camera.dir"),
		},
		FFmpeg:       v.GetString("ffmpeg"),
		FFprobe:      v.GetString("ffprobe"),
		ProgressStep: v.GetInt("progress_step"),
		MarkFailures: v.GetBool("mark_failures"),
		LogLevel:     v.GetString("log_level"),
		LogFile:      v.GetString("log_file"),
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	var errs error
	if _, err := ParseQuality(c.Quality); err != nil {
		errs = multierr.Append(errs, err)
	}
	if strings.TrimSpace(c.SaveAt) == "" {
		errs = multierr.Append(errs, errors.New("save_at must not be empty"))
	}
	if strings.TrimSpace(c.VideoName) == "" || strings.ContainsAny(c.VideoName, `/\`) {
		errs = multierr.Append(errs, fmt.Errorf("video_name %q must be a plain file name", c.VideoName))
	}
	if c.ProgressStep <= 0 || c.ProgressStep > 100 {
		errs = multierr.Append(errs, fmt.Errorf("progress_step %d must be between 1 and 100", c.ProgressStep))
	}
	if c.Camera.Duration < 0 {
		errs = multierr.Append(errs, fmt.Errorf("camera.duration %s must not be negative", c.Camera.Duration))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func ParseQuality(s string) (VideoQuality, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for q := VeryLow; q <= VeryHigh; q++ {
		if q.String() == normalized {
			return q, nil
		}
	}
	return Medium, fmt.Errorf("unknown quality %q", s)
}

// Dir resolves the named locations under the home directory; anything else
// is a directory path
func (l SaveLocation) Dir() (string, error) {
	var sub string
	switch SaveLocation(strings.ToLower(string(l))) {
	case SaveToMovies:
		sub = "Movies"
	case SaveToPictures:
		sub = "Pictures"
	case SaveToDownloads:
		sub = "Downloads"
	default:
		return filepath.Abs(string(l))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", l, err)
	}
	return filepath.Join(home, sub), nil
}

// SessionOptions builds the session options described by the config
func (c Config) SessionOptions() (SessionOptions, error) {
	quality, err := ParseQuality(c.Quality)
	if err != nil {
		return SessionOptions{}, err
	}
	saveAt, err := SaveLocation(c.SaveAt).Dir()
	if err != nil {
		return SessionOptions{}, err
	}
	return SessionOptions{
		Gallery: &GalleryPicker{Dir: c.GalleryDir},
		Camera: &CameraRecorder{
			FFmpeg:   c.FFmpeg,
			Format:   c.Camera.Format,
			Device:   c.Camera.Device,
			Duration: c.Camera.Duration,
			Dir:      c.Camera.Dir,
		},
		Storage: StorageConfiguration{
			SaveAt:    saveAt,
			VideoName: c.VideoName,
		},
		Config: Configuration{
			Quality:         quality,
			MinBitrateCheck: c.MinBitrateCheck,
		},
		Streamable:   c.Streamable,
		ProgressStep: c.ProgressStep,
		MarkFailures: c.MarkFailures,
	}, nil
}
