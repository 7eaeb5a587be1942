// Package logging builds the stage loggers used across the pipeline:
// structured JSON to stderr, mirrored into a rotated file per stage.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger for one pipeline stage. When dir is non-empty the
// stream is also written to <dir>/<stage>.log with rotation, so long
// batch runs don't grow a single unbounded file.
func New(stage, dir string, level slog.Level) *slog.Logger {
	var sink io.Writer = os.Stderr
	if dir != "" {
		sink = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(dir, stage+".log"),
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		})
	}
	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("stage", stage)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
