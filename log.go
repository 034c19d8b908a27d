package video_compressor

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewLogger writes console formatted entries to every sink and to logFile
// when it is set. The returned func closes the log file.
func NewLogger(levelName, logFile string, sinks ...zapcore.WriteSyncer) (*zap.Logger, func(), error) {
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
		closer = func() { file.Close() }
	}
	if len(sinks) == 0 {
		return zap.NewNop(), closer, nil
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core), closer, nil
}
