// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/johnyburd/autbot/internal/core/config"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the handler described by cfg, installs it as the slog default
// and returns the logger plus a closer for any log file. debug forces the
// debug level.
func Setup(cfg config.LoggingConfig, debug bool) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	// Console text output goes through stylelog like every other service.
	if cfg.File == "" && cfg.Format != "json" {
		stylelog.InitDefault(&tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
		return slog.Default(), io.NopCloser(nil)
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out, closer = rotator, rotator
	}

	logger := slog.New(NewHandler(out, cfg.Format, level))
	slog.SetDefault(logger)
	return logger, closer
}

// NewHandler returns a JSON handler or a tint text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	})
}
