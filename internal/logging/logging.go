// Package logging builds the application logger: structured slog output
// with size-based rotation in production, plain stderr elsewhere.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"proplens/internal/config"
)

// NewLogger creates a slog.Logger configured from the application config.
// In production the log stream is rotated with lumberjack; in development
// and test it goes to stderr so output shows up in the terminal.
func NewLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stderr

	if cfg.IsProduction() {
		out = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})

	return slog.New(handler).With(slog.String("app", cfg.AppName))
}

func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
