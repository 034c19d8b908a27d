package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	compressor "go.hasen.dev/video_compressor"
)

// flag name -> config key
var flagKeys = map[string]string{
	"save-at":       "save_at",
	"quality":       "quality",
	"gallery":       "gallery_dir",
	"streamable":    "streamable",
	"mark-failures": "mark_failures",
	"log-level":     "log_level",
	"log-file":      "log_file",
}

type app struct {
	configFile string
	config     compressor.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:               "video_compressor",
		Short:             "Compress videos picked from a directory or recorded from a camera",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runInteractive,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./video_compressor.yaml)")
	flags.String("save-at", "", "where compressed videos go: movies, pictures, downloads or a directory")
	flags.String("quality", "", "very_low, low, medium, high or very_high")
	flags.String("gallery", "", "directory the gallery picks videos from")
	flags.Bool("streamable", false, "optimize the output for progressive streaming")
	flags.Bool("mark-failures", false, "show failed and cancelled compressions on their rows")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-file", "", "also write the log to this file")

	cmd.AddCommand(a.compressCmd(), a.recordCmd())
	return cmd
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	v, err := compressor.NewViper(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	a.config, err = compressor.LoadConfig(v)
	return err
}

func (a *app) newSession(view compressor.View, logger *zap.Logger, gallery compressor.Picker) (*compressor.Session, error) {
	opts, err := a.config.SessionOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	if gallery != nil {
		opts.Gallery = gallery
	}
	if err := compressor.CheckPermissions(a.config.GalleryDir, opts.Storage.SaveAt); err != nil {
		// reported only, selection still goes on
		logger.Warn("permission check", zap.Error(err))
	}
	engine := compressor.NewFFmpegCompressor(a.config.FFmpeg, a.config.FFprobe, logger)
	return compressor.NewSession(engine, view, opts), nil
}

func (a *app) runInteractive(cmd *cobra.Command, args []string) error {
	tui := &compressor.Tui{}
	if err := tui.Init(); err != nil {
		return err
	}
	defer tui.Fini()

	logger, closeLog, err := compressor.NewLogger(a.config.LogLevel, a.config.LogFile, tui)
	if err != nil {
		return err
	}
	defer closeLog()

	thumbs := compressor.NewThumbnailLoader(compressor.FFmpegFrameGrabber(a.config.FFmpeg), 2*compressor.ThumbCols, 4*compressor.ThumbRows, logger)
	thumbs.OnReady = func(string) { tui.Update() }
	tui.Adapter = compressor.NewProgressListAdapter(thumbs)

	session, err := a.newSession(tui, logger, nil)
	if err != nil {
		return err
	}
	defer session.Close()
	tui.Session = session

	tui.Loop(cmd.Context())
	return nil
}

// runBatch runs one selection without a screen and waits for every video
func (a *app) runBatch(ctx context.Context, selection func(s *compressor.Session) error, gallery compressor.Picker) error {
	logger, closeLog, err := compressor.NewLogger(a.config.LogLevel, a.config.LogFile, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	defer closeLog()
	defer logger.Sync()

	session, err := a.newSession(compressor.NewPlainView(os.Stdout), logger, gallery)
	if err != nil {
		return err
	}
	defer session.Close()

	stop := context.AfterFunc(ctx, session.Close)
	defer stop()

	if err := selection(session); err != nil {
		return err
	}
	session.Wait()

	items := session.Items()
	compressed := 0
	for _, item := range items {
		if item.Stage == compressor.ProcessingSuccess {
			compressed++
		}
	}
	if len(items) == 0 {
		return errors.New("nothing was compressed")
	}
	fmt.Printf("Compressed %d of %d videos\n", compressed, len(items))
	if compressed < len(items) {
		return fmt.Errorf("%d videos were not compressed", len(items)-compressed)
	}
	return nil
}

func (a *app) compressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress [files...]",
		Short: "Compress the given videos, or every video of the gallery directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gallery := &compressor.GalleryPicker{Dir: a.config.GalleryDir, Files: args}
			return a.runBatch(ctx, func(s *compressor.Session) error {
				return s.SelectFromGallery(ctx)
			}, gallery)
		},
	}
}

func (a *app) recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record one clip from the camera and compress it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.runBatch(ctx, func(s *compressor.Session) error {
				return s.RecordFromCamera(ctx)
			}, nil)
		},
	}
}
